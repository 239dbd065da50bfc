package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/pkg/idx"
	"github.com/withapp/crush/pkg/slogx"
)

var (
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrStateMissing     = errors.New("state_missing")
	ErrStateMismatch    = errors.New("state_mismatch")
	ErrProviderExchange = errors.New("provider_exchange_failed")
)

const (
	statePrefix  = "oauth:state:"
	signupPrefix = "oauth:signup:"
)

// ProviderIdentity is what an external identity provider asserts about the
// person who just signed in.
type ProviderIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Provider is the external-IdP seam. Production wires the Google bridge;
// tests substitute a fake.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ProviderIdentity, error)
}

// SignupInfo is the pending-registration state carried between the provider
// callback and the registration page.
type SignupInfo struct {
	Provider      string `json:"provider"`
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// CallbackResult is the outcome of a provider callback: either the person
// is known and gets tokens, or they are new and get a signup session.
type CallbackResult struct {
	Pair            *domain.TokenPair
	SignupSessionID string
}

// OAuthService runs the external-IdP login flow, including the anti-CSRF
// state guard and account linking.
type OAuthService struct {
	Provider  Provider
	Store     store.Store
	Tokens    *TokenService
	Cache     cache.Store
	StateTTL  time.Duration
	SignupTTL time.Duration
}

// Begin issues the state guard and returns the provider redirect URL plus
// the session id the callback must present.
func (s *OAuthService) Begin(ctx context.Context) (authURL, sessionID string, err error) {
	state := uuid.NewString()

	sessionID, err = s.IssueState(ctx, state)
	if err != nil {
		return "", "", err
	}
	return s.Provider.AuthCodeURL(state), sessionID, nil
}

// IssueState stores an anti-CSRF state under a fresh session id.
func (s *OAuthService) IssueState(ctx context.Context, state string) (string, error) {
	for i := 0; i < ceremonyIDAttempts; i++ {
		sessionID := uuid.NewString()
		ok, err := s.Cache.SetNX(ctx, statePrefix+sessionID, []byte(state), s.StateTTL)
		if err != nil {
			return "", fmt.Errorf("store oauth state: %w", err)
		}
		if ok {
			return sessionID, nil
		}
	}
	return "", ErrCeremonyIDCollision
}

// ConsumeState atomically takes the stored state out of the guard. A second
// consumption of the same session id fails.
func (s *OAuthService) ConsumeState(ctx context.Context, sessionID string) (string, error) {
	value, err := s.Cache.GetDel(ctx, statePrefix+sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	if len(value) == 0 {
		return "", ErrStateMissing
	}
	return string(value), nil
}

// Callback finishes the provider flow: validates the state guard, exchanges
// the authorization code, and either logs the person in or opens a signup
// session.
//
// A provider subject without a link is matched against existing identities
// by verified email; a match is linked in place so people who registered by
// passkey can pick up Google sign-in without a second account.
func (s *OAuthService) Callback(ctx context.Context, sessionID, state, code string) (*CallbackResult, error) {
	l := slogx.FromContext(ctx)

	stored, err := s.ConsumeState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored != state {
		l.Warn("oauth state mismatch", slog.String("provider", s.Provider.Name()))
		return nil, ErrStateMismatch
	}

	pid, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		l.Info("provider code exchange failed",
			slog.String("provider", s.Provider.Name()),
			slog.Any("error", err),
		)
		return nil, ErrProviderExchange
	}

	acc, err := s.Store.OAuthAccounts().GetOAuthAccount(ctx, s.Provider.Name(), pid.Subject)
	if err == nil {
		ident, err := s.Store.Identities().GetIdentityByID(ctx, acc.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrIdentityNotFound
			}
			return nil, err
		}
		pair, err := s.Tokens.Login(ctx, ident)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Pair: pair}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if pid.EmailVerified {
		if ident, err := s.Store.Identities().GetIdentityByEmail(ctx, pid.Email); err == nil {
			if err := s.link(ctx, ident.ID, pid.Subject); err != nil {
				return nil, err
			}
			pair, err := s.Tokens.Login(ctx, ident)
			if err != nil {
				return nil, err
			}
			return &CallbackResult{Pair: pair}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	signupID, err := s.openSignup(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{SignupSessionID: signupID}, nil
}

// RegisterInfo returns the pending-registration details for a signup
// session. The session is left in place; the registration page may load
// more than once.
func (s *OAuthService) RegisterInfo(ctx context.Context, sessionID string) (SignupInfo, error) {
	payload, err := s.Cache.Get(ctx, signupPrefix+sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return SignupInfo{}, ErrSessionNotFound
		}
		return SignupInfo{}, err
	}

	var info SignupInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return SignupInfo{}, fmt.Errorf("decode signup session: %w", err)
	}
	return info, nil
}

func (s *OAuthService) link(ctx context.Context, userID, subject string) error {
	err := s.Store.OAuthAccounts().CreateOAuthAccount(ctx, domain.OAuthAccount{
		ID:       idx.New().String(),
		Provider: s.Provider.Name(),
		Subject:  subject,
		UserID:   userID,
	})
	// A concurrent callback may have linked first; that outcome is fine.
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (s *OAuthService) openSignup(ctx context.Context, pid ProviderIdentity) (string, error) {
	payload, err := json.Marshal(SignupInfo{
		Provider:      s.Provider.Name(),
		Subject:       pid.Subject,
		Email:         pid.Email,
		EmailVerified: pid.EmailVerified,
		Name:          pid.Name,
	})
	if err != nil {
		return "", fmt.Errorf("encode signup session: %w", err)
	}

	for i := 0; i < ceremonyIDAttempts; i++ {
		sessionID := uuid.NewString()
		ok, err := s.Cache.SetNX(ctx, signupPrefix+sessionID, payload, s.SignupTTL)
		if err != nil {
			return "", fmt.Errorf("store signup session: %w", err)
		}
		if ok {
			return sessionID, nil
		}
	}
	return "", ErrCeremonyIDCollision
}
