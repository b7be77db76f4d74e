package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/linkstash/internal/auth"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/secrets"
	"github.com/wolfeidau/linkstash/internal/session"
	"github.com/wolfeidau/linkstash/internal/store"
	"github.com/wolfeidau/linkstash/internal/store/memory"
)

const aliceSession = "alice-session"

type testEnv struct {
	handler http.Handler
	links   *memory.LinkStore
	keys    *memory.APIKeyStore
	v       *auth.Verifier
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	sessions := session.NewTable()
	require.NoError(t, sessions.Put(aliceSession, &models.Session{
		Principal: &models.Principal{ID: "alice", Login: "alice", LangKey: "en"},
	}))

	env := &testEnv{links: memory.NewLinkStore(), keys: memory.NewAPIKeyStore()}
	env.v = auth.NewVerifier(sessions, env.keys)

	h, err := NewHandler(env.links, env.keys, secrets.NewGenerator())
	require.NoError(t, err)
	env.handler = h.Routes(env.v)

	return env
}

func (e *testEnv) do(method, target string, signedIn bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if signedIn {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: aliceSession})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	env := setup(t)

	title := "The Go Blog"
	require.NoError(t, env.links.Create(context.Background(), &models.Link{
		ID:          uuid.Must(uuid.NewV7()),
		URL:         "https://go.dev/blog",
		Title:       &title,
		CreatedBy:   "alice",
		DateCreated: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}))

	t.Run("anonymous", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/", false)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Sign in to see your links.")
		require.Contains(t, rec.Body.String(), `href="/oauth2/login/oidc"`)
		require.NotContains(t, rec.Body.String(), "go.dev")
	})

	t.Run("signed in", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/", true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "The Go Blog")
		require.Contains(t, rec.Body.String(), `href="https://go.dev/blog"`)
		require.Contains(t, rec.Body.String(), "2024-05-01")
		require.Contains(t, rec.Body.String(), `href="/oauth2/logout/oidc"`)
	})

	t.Run("invalid page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/?page=zero", true)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodGet, "/?page=9223372036854775807", true)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

var newKeyPattern = regexp.MustCompile(`<code>([1-9A-HJ-NP-Za-km-z]+)</code>`)

func TestAPIKeys_Lifecycle(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/apikeys", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No API keys yet.")

	rec = env.do(http.MethodPost, "/apikeys", true)
	require.Equal(t, http.StatusCreated, rec.Code)

	match := newKeyPattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, match, 2)
	secret := match[1]

	// the new key authenticates as its creator
	key, principal, ok := env.v.APIKeyPrincipal(context.Background(), secret)
	require.True(t, ok)
	require.Equal(t, "alice", principal.ID)
	require.Equal(t, secret[:secrets.APIKeyPrefixLen], key.Prefix)

	// the secret is never shown again
	rec = env.do(http.MethodGet, "/apikeys", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), secret)
	require.Contains(t, rec.Body.String(), key.Prefix)

	rec = env.do(http.MethodPost, "/apikeys/"+key.ID.String()+"/delete", true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/apikeys", rec.Header().Get("Location"))

	_, _, ok = env.v.APIKeyPrincipal(context.Background(), secret)
	require.False(t, ok)

	keys, total, err := env.keys.ListByOwner(context.Background(), "alice", store.Page{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, keys)
}

func TestAPIKeys_RequireSession(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodGet, "/apikeys", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Sign in to manage your API keys.")

	rec = env.do(http.MethodPost, "/apikeys", false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/apikeys", rec.Header().Get("Location"))

	rec = env.do(http.MethodPost, "/apikeys/"+uuid.NewString()+"/delete", false)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, total, err := env.keys.ListByOwner(context.Background(), "alice", store.Page{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestDeleteAPIKey_OtherOwner(t *testing.T) {
	env := setup(t)

	bobKey := &models.APIKey{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedBy: "bob",
		KeyHash:   models.HashAPIKey("bob-secret"),
		Prefix:    "bob-secr",
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.keys.Create(context.Background(), bobKey))

	rec := env.do(http.MethodPost, "/apikeys/"+bobKey.ID.String()+"/delete", true)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, _, ok := env.v.APIKeyPrincipal(context.Background(), "bob-secret")
	require.True(t, ok)

	rec = env.do(http.MethodPost, "/apikeys/not-a-uuid/delete", true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}
