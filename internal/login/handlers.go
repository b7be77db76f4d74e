package login

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/auth"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	stateCookieName = "oidc_state"
	nonceCookieName = "oidc_nonce"

	// enough time to complete the provider login
	stateMaxAge = 300
)

// Error messages returned by the login endpoints.
const (
	MsgTokenHandoff     = "auth server did not complete token handoff"
	MsgMissingIDToken   = "id token was not found in response"
	MsgStateMismatch    = "auth state did not match"
	MsgCodeRequired     = "authorization code is required"
	MsgNotAuthenticated = "not currently authenticated"
	MsgLoginUnavailable = "failed to start login"
	MsgSessionFailed    = "failed to create session"
)

// LoginHandler starts an authorization attempt: it binds a fresh state and
// nonce to the browser and redirects to the provider.
func (o *OIDC) LoginHandler(w http.ResponseWriter, r *http.Request) {
	log.Debug().Msg("Initiating OIDC login flow")

	state, err := o.secrets.State()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate login state")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgLoginUnavailable)
		return
	}
	nonce, err := o.secrets.State()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate login nonce")
		httpmiddleware.WriteError(w, http.StatusInternalServerError, MsgLoginUnavailable)
		return
	}

	http.SetCookie(w, o.cookie(stateCookieName, state, stateMaxAge))
	http.SetCookie(w, o.cookie(nonceCookieName, nonce, stateMaxAge))

	telemetry.GetMetrics().LoginsStartedTotal.Add(r.Context(), 1)

	http.Redirect(w, r, o.AuthCodeURL(state, nonce), http.StatusFound)
}

// CallbackHandler completes an authorization attempt. On success a session is
// stored, its identifier is set in the session cookie and the browser is sent
// to the home page. No session exists after any failure.
func (o *OIDC) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer().Start(r.Context(), "login.Callback")
	defer span.End()

	log.Debug().Msg("OIDC callback received")

	expectedState := cookieValue(r, stateCookieName)
	nonce := cookieValue(r, nonceCookieName)

	// the attempt is single use whatever the outcome
	http.SetCookie(w, o.cookie(stateCookieName, "", -1))
	http.SetCookie(w, o.cookie(nonceCookieName, "", -1))

	if providerErr := r.FormValue("error"); providerErr != "" {
		log.Warn().Str("error", providerErr).Str("description", r.FormValue("error_description")).Msg("Provider returned an authorization error")
		o.fail(ctx, w, "provider_error", http.StatusUnauthorized, MsgTokenHandoff)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		log.Warn().Msg("OIDC callback missing code")
		o.fail(ctx, w, "missing_code", http.StatusBadRequest, MsgCodeRequired)
		return
	}

	if err := validateState(r.FormValue("state"), expectedState); err != nil {
		log.Warn().Err(err).Msg("OIDC callback state mismatch")
		o.fail(ctx, w, "state_mismatch", http.StatusUnauthorized, MsgStateMismatch)
		return
	}

	started := time.Now()
	sess, err := o.Authenticate(ctx, code, nonce)
	telemetry.GetMetrics().ProviderExchangeTime.Record(ctx, float64(time.Since(started).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")

		if errors.Is(err, ErrMissingIDToken) {
			log.Error().Err(err).Msg("Provider token response had no id token")
			o.fail(ctx, w, "missing_id_token", http.StatusUnauthorized, MsgMissingIDToken)
			return
		}
		log.Error().Err(err).Msg("Provider did not complete token handoff")
		o.fail(ctx, w, "token_handoff", http.StatusUnauthorized, MsgTokenHandoff)
		return
	}

	sess.CreatedAt = time.Now()
	sess.UserAgent = r.UserAgent()
	sess.IPAddress = httpmiddleware.ClientIPFromContext(ctx)
	if sess.IPAddress == "" {
		sess.IPAddress = httpmiddleware.ExtractClientIP(r)
	}

	sessionID, err := o.storeSession(sess)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store session")
		o.fail(ctx, w, "session_store", http.StatusInternalServerError, MsgSessionFailed)
		return
	}

	span.SetAttributes(attribute.String("principal.id", sess.Principal.ID))
	telemetry.GetMetrics().LoginsTotal.Add(ctx, 1)

	log.Info().
		Str("principal_id", sess.Principal.ID).
		Str("login", sess.Principal.Login).
		Msg("User authenticated successfully")

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusMovedPermanently)
}

// LogoutHandler removes the caller's session. Only the session named by the
// cookie is touched.
func (o *OIDC) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := cookieValue(r, auth.SessionCookieName)
	if sessionID == "" {
		log.Debug().Msg("Logout without a session cookie")
		httpmiddleware.WriteError(w, http.StatusUnauthorized, MsgNotAuthenticated)
		return
	}

	existed := o.sessions.Remove(sessionID)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	if !existed {
		log.Debug().Msg("Logout for an unknown session")
		httpmiddleware.WriteError(w, http.StatusUnauthorized, MsgNotAuthenticated)
		return
	}

	telemetry.GetMetrics().LogoutsTotal.Add(r.Context(), 1)
	log.Info().Msg("User logged out")

	http.Redirect(w, r, "/", http.StatusMovedPermanently)
}

func (o *OIDC) fail(ctx context.Context, w http.ResponseWriter, reason string, status int, msg string) {
	telemetry.GetMetrics().LoginFailuresTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
	httpmiddleware.WriteError(w, status, msg)
}

func (o *OIDC) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func validateState(got, expected string) error {
	if got == "" || expected == "" {
		return ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
