package service

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider is the production Provider, configured via OIDC discovery
// against Google's issuer.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogleProvider initializes the provider via discovery.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	op, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover provider google: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     op.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &GoogleProvider{
		oauthConfig: oauthCfg,
		verifier:    op.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

// AuthCodeURL constructs the authorization request for Google.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Exchange completes the code exchange and returns the verified identity
// asserted by the ID token.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (ProviderIdentity, error) {
	tok, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return ProviderIdentity{}, fmt.Errorf("id_token missing in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return ProviderIdentity{}, fmt.Errorf("parse claims: %w", err)
	}

	return ProviderIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
