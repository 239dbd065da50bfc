package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
)

// catalogEntry matches the published AAGUID catalog file layout, keyed by
// the dashed AAGUID string.
type catalogEntry struct {
	Name      string `json:"name"`
	IconLight string `json:"icon_light"`
	IconDark  string `json:"icon_dark"`
}

// ImportAuthenticators loads the AAGUID catalog from its JSON form and
// replaces the stored catalog wholesale. It returns the number of entries
// imported.
func ImportAuthenticators(ctx context.Context, st store.Store, r io.Reader) (int, error) {
	var raw map[string]catalogEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, fmt.Errorf("decode authenticator catalog: %w", err)
	}

	entries := make([]domain.Authenticator, 0, len(raw))
	for aaguid, e := range raw {
		entries = append(entries, domain.Authenticator{
			AAGUID:    aaguid,
			Name:      e.Name,
			IconLight: e.IconLight,
			IconDark:  e.IconDark,
		})
	}

	if err := st.Authenticators().ReplaceAuthenticators(ctx, entries); err != nil {
		return 0, fmt.Errorf("replace authenticator catalog: %w", err)
	}
	return len(entries), nil
}
