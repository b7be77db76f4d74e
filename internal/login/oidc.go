package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/secrets"
	"github.com/wolfeidau/linkstash/internal/session"
	"golang.org/x/oauth2"
)

var (
	// ErrAuthFailed covers every provider round-trip failure: token exchange,
	// ID token verification, user-info fetch and timeouts.
	ErrAuthFailed = errors.New("auth provider failure")

	// ErrMissingIDToken means the token response carried no id_token.
	ErrMissingIDToken = errors.New("id token missing from token response")

	// ErrStateMismatch means the callback state did not match the login attempt.
	ErrStateMismatch = errors.New("auth state mismatch")
)

// DefaultScopes are requested on every authorization redirect.
var DefaultScopes = []string{oidc.ScopeOpenID, "email", "profile"}

// Config holds the relying party settings for the identity provider.
type Config struct {
	ClientID     string
	ClientSecret string
	Issuer       string
	RedirectURL  string
	Scopes       []string

	// ProviderTimeout bounds discovery and the whole callback round-trip.
	// Default: 10s
	ProviderTimeout time.Duration

	// SecureCookies sets the Secure attribute on every cookie issued.
	SecureCookies bool

	// HTTPClient is used for all provider requests. Default: http.DefaultClient
	HTTPClient *http.Client
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client ID and client secret are required")
	}
	if c.Issuer == "" {
		return errors.New("issuer is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// SessionTable is the subset of the session table the login flow mutates.
type SessionTable interface {
	Put(id string, s *models.Session) error
	Remove(id string) bool
}

// OIDC drives the authorization code flow against a single provider and turns
// a completed handshake into a session.
type OIDC struct {
	cfg      Config
	provider *oidc.Provider
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	sessions SessionTable
	secrets  *secrets.Generator
}

// NewOIDC performs provider discovery and returns a ready login flow.
func NewOIDC(ctx context.Context, cfg Config, sessions SessionTable, gen *secrets.Generator) (*OIDC, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oidc config: %w", err)
	}
	if sessions == nil || gen == nil {
		return nil, errors.New("session table and secret generator are required")
	}

	discoveryCtx, cancel := context.WithTimeout(oidc.ClientContext(ctx, cfg.HTTPClient), cfg.ProviderTimeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoveryCtx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider %s: %w", cfg.Issuer, err)
	}

	return &OIDC{
		cfg:      cfg,
		provider: provider,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		sessions: sessions,
		secrets:  gen,
	}, nil
}

// AuthCodeURL returns the provider authorization URL for one login attempt.
func (o *OIDC) AuthCodeURL(state, nonce string) string {
	return o.oauth2.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Authenticate exchanges an authorization code for tokens, verifies the ID
// token, fetches user-info and materializes a session without an identifier.
// Nothing is stored; the caller owns insertion into the session table.
func (o *OIDC) Authenticate(ctx context.Context, code, nonce string) (*models.Session, error) {
	if nonce == "" {
		return nil, fmt.Errorf("%w: login nonce is missing", ErrAuthFailed)
	}

	ctx, cancel := context.WithTimeout(oidc.ClientContext(ctx, o.cfg.HTTPClient), o.cfg.ProviderTimeout)
	defer cancel()

	token, err := o.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", ErrAuthFailed, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: id token verification: %w", ErrAuthFailed, err)
	}
	if idToken.Nonce != nonce {
		return nil, fmt.Errorf("%w: id token nonce mismatch", ErrAuthFailed)
	}

	info, err := o.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("%w: user info: %w", ErrAuthFailed, err)
	}

	var userInfo models.UserInfo
	if err := info.Claims(&userInfo); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %w", ErrAuthFailed, err)
	}
	if userInfo.Subject == "" || userInfo.Subject != idToken.Subject {
		return nil, fmt.Errorf("%w: user info subject does not match id token", ErrAuthFailed)
	}
	verified := info.EmailVerified
	userInfo.EmailVerified = &verified

	return &models.Session{
		Principal: userInfo.Principal(),
		IDToken:   rawIDToken,
		UserInfo:  &userInfo,
	}, nil
}

const maxSessionIDAttempts = 3

// storeSession assigns a fresh identifier and inserts the session, drawing a
// new identifier if one is already taken.
func (o *OIDC) storeSession(sess *models.Session) (string, error) {
	for range maxSessionIDAttempts {
		id, err := o.secrets.SessionID()
		if err != nil {
			return "", err
		}

		err = o.sessions.Put(id, sess)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, session.ErrExists) {
			return "", err
		}
	}
	return "", errors.New("failed to allocate a unique session id")
}
