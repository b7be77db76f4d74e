package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/store"
)

// SessionLookup resolves a session identifier to a copy of the stored session.
type SessionLookup interface {
	Get(id string) (*models.Session, bool)
}

// APIKeyLookup resolves the hash of a presented secret to its key record.
type APIKeyLookup interface {
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)
}

var _ APIKeyLookup = (store.APIKeyStore)(nil)

// Verifier is the single authority that turns a presented credential into a
// principal. It only reads; it never creates sessions or keys.
type Verifier struct {
	sessions SessionLookup
	keys     APIKeyLookup
}

// NewVerifier creates a verifier over the session table and the key store.
func NewVerifier(sessions SessionLookup, keys APIKeyLookup) *Verifier {
	return &Verifier{sessions: sessions, keys: keys}
}

// SessionPrincipal resolves a session identifier. A miss is not an error.
func (v *Verifier) SessionPrincipal(token string) (*models.Principal, bool) {
	if token == "" {
		return nil, false
	}

	sess, ok := v.sessions.Get(token)
	if !ok || sess.Principal == nil {
		return nil, false
	}

	return sess.Principal, true
}

// APIKeyPrincipal resolves an API key secret by exact match. Storage faults
// are logged and reported as unauthenticated.
func (v *Verifier) APIKeyPrincipal(ctx context.Context, token string) (*models.APIKey, *models.Principal, bool) {
	if token == "" {
		return nil, nil, false
	}

	key, err := v.keys.GetByHash(ctx, models.HashAPIKey(token))
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			log.Debug().Msg("API key not found")
		} else {
			log.Error().Err(err).Msg("API key lookup failed")
		}
		return nil, nil, false
	}

	if key.IsRevoked() || key.CreatedBy == "" {
		return nil, nil, false
	}

	return key, models.OwnerPrincipal(key.CreatedBy), true
}
