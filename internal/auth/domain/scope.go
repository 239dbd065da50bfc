package domain

// Scope is a permission tag carried in access token claims. The set is
// closed; the string values are fixed for compatibility with tokens already
// in circulation.
type Scope string

const (
	ScopeCoreUser Scope = "core:user"

	ScopePlaceAdd    Scope = "place:add"
	ScopePlaceEdit   Scope = "place:edit"
	ScopePlaceDelete Scope = "place:delete"

	ScopeRegionAdd    Scope = "region:add"
	ScopeRegionEdit   Scope = "region:edit"
	ScopeRegionDelete Scope = "region:delete"

	ScopeThemeEdit Scope = "theme:edit"

	// ScopeAuthRefresh marks a token as refresh-only. Access tokens never
	// carry it; refresh tokens carry nothing else.
	ScopeAuthRefresh Scope = "auth:refresh"
)

var knownScopes = map[Scope]struct{}{
	ScopeCoreUser:     {},
	ScopePlaceAdd:     {},
	ScopePlaceEdit:    {},
	ScopePlaceDelete:  {},
	ScopeRegionAdd:    {},
	ScopeRegionEdit:   {},
	ScopeRegionDelete: {},
	ScopeThemeEdit:    {},
	ScopeAuthRefresh:  {},
}

// Valid reports whether s is a member of the closed scope set.
func (s Scope) Valid() bool {
	_, ok := knownScopes[s]
	return ok
}

// String returns the wire value.
func (s Scope) String() string { return string(s) }

// ScopeStrings converts a scope list to its wire representation.
func ScopeStrings(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, string(s))
	}
	return out
}

// HasScopes reports whether every required scope is present in have.
func HasScopes(have []string, required ...Scope) bool {
	if len(have) == 0 {
		return len(required) == 0
	}

	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}

	for _, req := range required {
		if _, ok := set[string(req)]; !ok {
			return false
		}
	}
	return true
}
