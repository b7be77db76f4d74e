package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SessionCookieName is the cookie carrying the session identifier.
const SessionCookieName = "sess"

// Error messages returned to callers that fail authentication.
const (
	MsgNotSignedIn   = "user is not signed in"
	MsgInvalidAPIKey = "api key is not valid"
)

// RequireSession authenticates requests with a session identifier, read from
// the session cookie or, when no cookie is sent, from a bearer token.
func RequireSession(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)

			principal, ok := v.SessionPrincipal(token)
			if !ok {
				log.Debug().Str("path", r.URL.Path).Msg("Session auth: no valid session")
				recordReject(r.Context(), MethodSession)
				httpmiddleware.WriteError(w, http.StatusUnauthorized, MsgNotSignedIn)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{
				Principal:    principal,
				Method:       MethodSession,
				CredentialID: token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches the session identity when one is presented and
// otherwise passes the request through anonymously.
func OptionalSession(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if principal, ok := v.SessionPrincipal(token); ok {
				r = r.WithContext(WithIdentity(r.Context(), &Identity{
					Principal:    principal,
					Method:       MethodSession,
					CredentialID: token,
				}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPIKey authenticates requests with an API key bearer token. It never
// falls back to the session cookie.
func RequireAPIKey(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, principal, ok := v.APIKeyPrincipal(r.Context(), BearerToken(r))
			if !ok {
				log.Debug().Str("path", r.URL.Path).Msg("API key auth: rejected")
				recordReject(r.Context(), MethodAPIKey)
				httpmiddleware.WriteError(w, http.StatusUnauthorized, MsgInvalidAPIKey)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{
				Principal:    principal,
				Method:       MethodAPIKey,
				CredentialID: key.ID.String(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken returns the session identifier presented with the request.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return BearerToken(r)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func recordReject(ctx context.Context, method Method) {
	telemetry.GetMetrics().AuthRejectsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", string(method))))
}
