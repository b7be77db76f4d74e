package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/linkstash/internal/auth"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/session"
	"github.com/wolfeidau/linkstash/internal/store"
	"github.com/wolfeidau/linkstash/internal/store/memory"
)

const (
	aliceSession = "alice-session"
	aliceKey     = "alice-api-key-secret"
	bobSession   = "bob-session"
)

type testEnv struct {
	handler http.Handler
	links   *memory.LinkStore
	groups  *memory.GroupStore
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	sessions := session.NewTable()
	require.NoError(t, sessions.Put(aliceSession, &models.Session{Principal: &models.Principal{ID: "alice"}}))
	require.NoError(t, sessions.Put(bobSession, &models.Session{Principal: &models.Principal{ID: "bob"}}))

	keys := memory.NewAPIKeyStore()
	require.NoError(t, keys.Create(context.Background(), &models.APIKey{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedBy: "alice",
		KeyHash:   models.HashAPIKey(aliceKey),
		Prefix:    aliceKey[:8],
		CreatedAt: time.Now(),
	}))

	env := &testEnv{links: memory.NewLinkStore(), groups: memory.NewGroupStore()}
	env.handler = NewHandler(env.links, env.groups).Routes(auth.NewVerifier(sessions, keys))
	return env
}

func do(h http.Handler, method, target, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func withCookie(id string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: id}) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestSubmitLink(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name       string
		body       string
		opts       []func(*http.Request)
		wantStatus int
		wantErr    string
	}{
		{
			name:       "created with cookie",
			body:       `{"link":"https://go.dev/doc","submitted_at":"2024-05-01T10:00:00Z","title":"Docs"}`,
			opts:       []func(*http.Request){withCookie(aliceSession)},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "created with bearer session",
			body:       `{"link":"https://go.dev/blog","submitted_at":"2024-05-02T10:00:00Z","sensitive":true}`,
			opts:       []func(*http.Request){withBearer(aliceSession)},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid url",
			body:       `{"link":"not a url","submitted_at":"2024-05-01T10:00:00Z"}`,
			opts:       []func(*http.Request){withCookie(aliceSession)},
			wantStatus: http.StatusUnprocessableEntity,
			wantErr:    MsgInvalidURL,
		},
		{
			name:       "relative url",
			body:       `{"link":"/just/a/path","submitted_at":"2024-05-01T10:00:00Z"}`,
			opts:       []func(*http.Request){withCookie(aliceSession)},
			wantStatus: http.StatusUnprocessableEntity,
			wantErr:    MsgInvalidURL,
		},
		{
			name:       "malformed body",
			body:       `{"link":`,
			opts:       []func(*http.Request){withCookie(aliceSession)},
			wantStatus: http.StatusBadRequest,
			wantErr:    MsgInvalidBody,
		},
		{
			name:       "not signed in",
			body:       `{"link":"https://go.dev","submitted_at":"2024-05-01T10:00:00Z"}`,
			wantStatus: http.StatusUnauthorized,
			wantErr:    auth.MsgNotSignedIn,
		},
		{
			name:       "api key does not sign in",
			body:       `{"link":"https://go.dev","submitted_at":"2024-05-01T10:00:00Z"}`,
			opts:       []func(*http.Request){withBearer(aliceKey)},
			wantStatus: http.StatusUnauthorized,
			wantErr:    auth.MsgNotSignedIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.handler, http.MethodPost, "/links", tt.body, tt.opts...)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantErr != "" {
				require.JSONEq(t, `{"err":"`+tt.wantErr+`"}`, rec.Body.String())
				return
			}

			var link models.Link
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
			require.NotEqual(t, uuid.Nil, link.ID)
			require.Equal(t, "alice", link.CreatedBy)
		})
	}

	links, err := env.links.ListByOwner(context.Background(), "alice", store.Page{})
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.True(t, links[1].Sensitive)
}

func TestListLinks(t *testing.T) {
	env := setup(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, env.links.Create(context.Background(), &models.Link{
			ID:          uuid.Must(uuid.NewV7()),
			URL:         "https://example.com/" + string(rune('a'+i)),
			CreatedBy:   "alice",
			DateCreated: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rec := do(env.handler, http.MethodGet, "/links?page=2&links_per_page=2", "", withCookie(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)

	var links []models.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	require.Len(t, links, 2)
	require.Equal(t, "https://example.com/c", links[0].URL)
	require.Equal(t, "https://example.com/d", links[1].URL)
	for _, l := range links {
		require.Empty(t, l.CreatedBy)
	}

	// other users see nothing
	rec = do(env.handler, http.MethodGet, "/links", "", withCookie(bobSession))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(env.handler, http.MethodGet, "/links?page=0", "", withCookie(aliceSession))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(env.handler, http.MethodGet, "/links?page=9223372036854775807&links_per_page=2", "", withCookie(aliceSession))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"err":"`+MsgInvalidPage+`"}`, rec.Body.String())
}

type failingGroups struct{ *memory.GroupStore }

func (failingGroups) Create(context.Context, *models.Group) error {
	return errors.New("connection refused")
}

func TestSubmitGroup(t *testing.T) {
	env := setup(t)

	body := `{"name":"reading","description":"later","timestamptz":"2024-05-01T10:00:00Z"}`

	rec := do(env.handler, http.MethodPost, "/groups", body, withBearer(aliceKey))
	require.Equal(t, http.StatusCreated, rec.Code)

	var group models.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &group))
	require.Equal(t, "reading", group.Name)
	require.Equal(t, "alice", group.CreatedBy)

	// session credentials are not accepted on the group routes
	rec = do(env.handler, http.MethodPost, "/groups", body, withCookie(aliceSession))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"err":"api key is not valid"}`, rec.Body.String())

	rec = do(env.handler, http.MethodPost, "/groups", body, withBearer(aliceSession))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(env.handler, http.MethodPost, "/groups", `{"name":" ","timestamptz":"2024-05-01T10:00:00Z"}`, withBearer(aliceKey))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitGroup_StorageFailure(t *testing.T) {
	sessions := session.NewTable()
	keys := memory.NewAPIKeyStore()
	require.NoError(t, keys.Create(context.Background(), &models.APIKey{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedBy: "alice",
		KeyHash:   models.HashAPIKey(aliceKey),
		CreatedAt: time.Now(),
	}))

	h := NewHandler(memory.NewLinkStore(), failingGroups{memory.NewGroupStore()}).Routes(auth.NewVerifier(sessions, keys))

	rec := do(h, http.MethodPost, "/groups", `{"name":"x","timestamptz":"2024-05-01T10:00:00Z"}`, withBearer(aliceKey))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"err":"database was unreachable"}`, rec.Body.String())
}

func TestListGroups(t *testing.T) {
	env := setup(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, env.groups.Create(context.Background(), &models.Group{
			ID:          uuid.Must(uuid.NewV7()),
			Name:        name,
			CreatedBy:   "alice",
			DateCreated: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rec := do(env.handler, http.MethodGet, "/groups?groups_per_page=2", "", withBearer(aliceKey))
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []models.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 2)
	require.Equal(t, "third", groups[0].Name)
	require.Equal(t, "second", groups[1].Name)
	require.Empty(t, groups[0].CreatedBy)
}

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		query   string
		want    store.Page
		wantErr bool
	}{
		{query: "", want: store.Page{Number: 1, Size: 50}},
		{query: "page=3&links_per_page=10", want: store.Page{Number: 3, Size: 10}},
		{query: "links_per_page=100000", want: store.Page{Number: 1, Size: maxPageSize}},
		{query: "page=abc", wantErr: true},
		{query: "page=-1", wantErr: true},
		{query: "links_per_page=0", wantErr: true},
		{query: "page=9223372036854775807&links_per_page=2", wantErr: true},
		{query: "page=99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, err := PageFromQuery(r, linksPerPageParam, defaultPageSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, page)
		})
	}
}

func TestParseLinkURL(t *testing.T) {
	for _, raw := range []string{"https://go.dev", "http://localhost:3030/x?y=1", "mailto:someone@example.com"} {
		_, ok := parseLinkURL(raw)
		require.True(t, ok, raw)
	}
	for _, raw := range []string{"", "go.dev", "/path", "://missing", "not a url"} {
		_, ok := parseLinkURL(raw)
		require.False(t, ok, raw)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
