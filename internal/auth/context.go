package auth

import (
	"context"

	"github.com/wolfeidau/linkstash/internal/models"
)

// Method names the credential scheme that authenticated a request.
type Method string

const (
	MethodSession Method = "session"
	MethodAPIKey  Method = "api_key"
)

// Identity is what the verifier attaches to an authenticated request.
type Identity struct {
	Principal    *models.Principal
	Method       Method
	CredentialID string // session id or api key id
}

type contextKey int

const (
	identityContextKey contextKey = iota
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity attached by one of the middlewares.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}

// PrincipalFromContext extracts the authenticated principal from the request context.
// Returns nil if no principal is present (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *models.Principal {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	return id.Principal
}
