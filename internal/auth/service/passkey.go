package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/pkg/cryptox"
	"github.com/withapp/crush/pkg/idx"
	"github.com/withapp/crush/pkg/slogx"
)

var (
	ErrIdentityRequired     = errors.New("identity_required")
	ErrCeremonyNotFound     = errors.New("ceremony_not_found")
	ErrCeremonyIDCollision  = errors.New("ceremony_id_collision")
	ErrMalformedCeremony    = errors.New("malformed_ceremony_response")
	ErrVerificationFailed   = errors.New("credential_verification_failed")
	ErrUnknownAuthenticator = errors.New("unknown_authenticator")
	ErrCredentialNotFound   = errors.New("credential_not_found")
	ErrCredentialExists     = errors.New("credential_already_registered")
	ErrCloneDetected        = errors.New("credential_clone_detected")
)

const (
	registrationPrefix   = "psk:reg:"
	authenticationPrefix = "psk:auth:"

	// ceremonyIDAttempts bounds the SetNX collision retry loop. Random ids
	// colliding three times in a row means something is deeply wrong.
	ceremonyIDAttempts = 3
)

// CredentialVerifier is the slice of go-webauthn the ceremonies run through.
// Production wires *webauthn.WebAuthn; tests substitute a fake to drive
// verification outcomes like clone warnings.
type CredentialVerifier interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginDiscoverableLogin(opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateDiscoverableLogin(handler webauthn.DiscoverableUserHandler, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

// PasskeyService runs the WebAuthn registration and authentication
// ceremonies. Ceremony state lives in the ephemeral store under a random
// ceremony id; each ceremony is completable at most once.
type PasskeyService struct {
	Verifier     CredentialVerifier
	Store        store.Store
	Cache        cache.Store
	ChallengeTTL time.Duration
}

// ceremonyUser adapts an identity and its stored credentials to the
// webauthn.User interface.
type ceremonyUser struct {
	id    []byte
	name  string
	creds []webauthn.Credential
}

func (u ceremonyUser) WebAuthnID() []byte                         { return u.id }
func (u ceremonyUser) WebAuthnName() string                       { return u.name }
func (u ceremonyUser) WebAuthnDisplayName() string                { return u.name }
func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

// BeginRegistration opens a registration ceremony for an existing identity
// and returns the creation options plus the ceremony id the completer must
// present.
func (s *PasskeyService) BeginRegistration(ctx context.Context, ident domain.Identity) (*protocol.CredentialCreation, string, error) {
	if ident.ID == "" {
		return nil, "", ErrIdentityRequired
	}

	existing, err := s.Store.Credentials().ListCredentialsByUser(ctx, ident.ID)
	if err != nil {
		return nil, "", err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(existing))
	for _, c := range existing {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: c.CredentialID,
		})
	}

	user := ceremonyUser{
		id:   []byte(ident.ID),
		name: ident.Email,
	}

	creation, session, err := s.Verifier.BeginRegistration(user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementRequired,
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, "", fmt.Errorf("begin registration: %w", err)
	}

	ceremonyID, err := s.storeSession(ctx, registrationPrefix, session)
	if err != nil {
		return nil, "", err
	}

	return creation, ceremonyID, nil
}

// CompleteRegistration consumes a registration ceremony, verifies the
// attestation and persists the new credential record. The authenticator
// must be present in the catalog; registrations from unknown hardware are
// rejected.
func (s *PasskeyService) CompleteRegistration(ctx context.Context, ident domain.Identity, ceremonyID string, parsed *protocol.ParsedCredentialCreationData) (domain.Credential, error) {
	if ident.ID == "" {
		return domain.Credential{}, ErrIdentityRequired
	}

	session, err := s.consumeSession(ctx, registrationPrefix, ceremonyID)
	if err != nil {
		return domain.Credential{}, err
	}

	user := ceremonyUser{
		id:   []byte(ident.ID),
		name: ident.Email,
	}

	verified, err := s.Verifier.CreateCredential(user, session, parsed)
	if err != nil {
		slogx.FromContext(ctx).Info("passkey attestation rejected",
			slog.String("user_id", ident.ID),
			slog.Any("error", err),
		)
		return domain.Credential{}, ErrVerificationFailed
	}

	aaguid := formatAAGUID(verified.Authenticator.AAGUID)
	catalog, err := s.Store.Authenticators().GetAuthenticator(ctx, aaguid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Credential{}, ErrUnknownAuthenticator
		}
		return domain.Credential{}, err
	}

	transports := make([]string, 0, len(verified.Transport))
	for _, t := range verified.Transport {
		transports = append(transports, string(t))
	}

	record := domain.Credential{
		ID:           idx.New().String(),
		UserID:       ident.ID,
		CredentialID: verified.ID,
		PublicKey:    verified.PublicKey,
		AAGUID:       aaguid,
		Name:         catalog.Name,
		SignCount:    verified.Authenticator.SignCount,
		Transports:   transports,
	}

	if err := s.Store.Credentials().CreateCredential(ctx, record); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Credential{}, ErrCredentialExists
		}
		return domain.Credential{}, err
	}

	slogx.FromContext(ctx).Info("passkey registered",
		slog.String("user_id", ident.ID),
		slog.String("credential", cryptox.FingerprintBytes(record.CredentialID)),
		slog.String("authenticator", catalog.Name),
	)

	return record, nil
}

// BeginAuthentication opens a discoverable-login ceremony. No identity is
// known yet; the authenticator will disclose which credential it holds.
func (s *PasskeyService) BeginAuthentication(ctx context.Context) (*protocol.CredentialAssertion, string, error) {
	assertion, session, err := s.Verifier.BeginDiscoverableLogin(
		webauthn.WithUserVerification(protocol.VerificationRequired),
	)
	if err != nil {
		return nil, "", fmt.Errorf("begin authentication: %w", err)
	}

	ceremonyID, err := s.storeSession(ctx, authenticationPrefix, session)
	if err != nil {
		return nil, "", err
	}

	return assertion, ceremonyID, nil
}

// CompleteAuthentication consumes an authentication ceremony and verifies
// the assertion against the stored credential. A sign counter that has gone
// backwards means the private key exists in more than one place; the stored
// counter is left untouched and the attempt is rejected.
func (s *PasskeyService) CompleteAuthentication(ctx context.Context, ceremonyID string, parsed *protocol.ParsedCredentialAssertionData) (domain.Identity, domain.Credential, error) {
	l := slogx.FromContext(ctx)

	cred, err := s.Store.Credentials().GetCredentialByCredentialID(ctx, parsed.RawID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, domain.Credential{}, ErrCredentialNotFound
		}
		return domain.Identity{}, domain.Credential{}, err
	}

	ident, err := s.Store.Identities().GetIdentityByID(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, domain.Credential{}, ErrIdentityNotFound
		}
		return domain.Identity{}, domain.Credential{}, err
	}

	session, err := s.consumeSession(ctx, authenticationPrefix, ceremonyID)
	if err != nil {
		return domain.Identity{}, domain.Credential{}, err
	}

	user := ceremonyUser{
		id:    []byte(ident.ID),
		name:  ident.Email,
		creds: []webauthn.Credential{toWebauthnCredential(cred)},
	}
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		return user, nil
	}

	verified, err := s.Verifier.ValidateDiscoverableLogin(handler, session, parsed)
	if err != nil {
		l.Info("passkey assertion rejected",
			slog.String("credential", cryptox.FingerprintBytes(cred.CredentialID)),
			slog.Any("error", err),
		)
		return domain.Identity{}, domain.Credential{}, ErrVerificationFailed
	}

	if verified.Authenticator.CloneWarning {
		l.Error("passkey sign counter regression, possible cloned credential",
			slog.String("user_id", ident.ID),
			slog.String("credential", cryptox.FingerprintBytes(cred.CredentialID)),
			slog.Uint64("stored_count", uint64(cred.SignCount)),
			slog.Uint64("presented_count", uint64(verified.Authenticator.SignCount)),
		)
		return domain.Identity{}, domain.Credential{}, ErrCloneDetected
	}

	if err := s.Store.Credentials().UpdateSignCount(ctx, cred.ID, verified.Authenticator.SignCount); err != nil {
		return domain.Identity{}, domain.Credential{}, err
	}
	cred.SignCount = verified.Authenticator.SignCount

	return ident, cred, nil
}

// List returns all passkeys registered to an identity, newest first.
func (s *PasskeyService) List(ctx context.Context, userID string) ([]domain.Credential, error) {
	return s.Store.Credentials().ListCredentialsByUser(ctx, userID)
}

// Rename changes the display name of an owned passkey.
func (s *PasskeyService) Rename(ctx context.Context, userID, credentialID, name string) error {
	err := s.Store.Credentials().UpdateCredentialName(ctx, credentialID, userID, name)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}

// Delete removes an owned passkey.
func (s *PasskeyService) Delete(ctx context.Context, userID, credentialID string) error {
	err := s.Store.Credentials().DeleteCredential(ctx, credentialID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}

// storeSession writes ceremony state under a fresh random id. The atomic
// create guards against id collisions; with random uuids a retry should
// never be needed, but the loop keeps the guarantee explicit.
func (s *PasskeyService) storeSession(ctx context.Context, prefix string, session *webauthn.SessionData) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("encode ceremony session: %w", err)
	}

	for i := 0; i < ceremonyIDAttempts; i++ {
		ceremonyID := uuid.NewString()
		ok, err := s.Cache.SetNX(ctx, prefix+ceremonyID, payload, s.ChallengeTTL)
		if err != nil {
			return "", fmt.Errorf("store ceremony session: %w", err)
		}
		if ok {
			return ceremonyID, nil
		}
	}
	return "", ErrCeremonyIDCollision
}

// consumeSession atomically takes ceremony state out of the store. Whatever
// happens next, the ceremony can never be completed a second time.
func (s *PasskeyService) consumeSession(ctx context.Context, prefix, ceremonyID string) (webauthn.SessionData, error) {
	payload, err := s.Cache.GetDel(ctx, prefix+ceremonyID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return webauthn.SessionData{}, ErrCeremonyNotFound
		}
		return webauthn.SessionData{}, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(payload, &session); err != nil {
		return webauthn.SessionData{}, fmt.Errorf("decode ceremony session: %w", err)
	}
	return session, nil
}

func toWebauthnCredential(c domain.Credential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
	for _, t := range c.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}

	var aaguid []byte
	if id, err := uuid.Parse(c.AAGUID); err == nil {
		aaguid = id[:]
	}

	return webauthn.Credential{
		ID:        c.CredentialID,
		PublicKey: c.PublicKey,
		Transport: transports,
		Authenticator: webauthn.Authenticator{
			AAGUID:    aaguid,
			SignCount: c.SignCount,
		},
	}
}

// formatAAGUID renders the authenticator-reported AAGUID bytes in the
// canonical dashed form the catalog is keyed by. Anything that isn't 16
// bytes maps to the zero uuid, which the catalog will not contain.
func formatAAGUID(raw []byte) string {
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}
