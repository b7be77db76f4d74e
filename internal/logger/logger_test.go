package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, setup(&bytes.Buffer{}, false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, setup(&bytes.Buffer{}, true).GetLevel())
}

func TestWithLevel(t *testing.T) {
	base := setup(&bytes.Buffer{}, false)

	l, err := withLevel(base, "")
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l, err = withLevel(base, "WARN")
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, l.GetLevel())

	l, err = withLevel(setup(&bytes.Buffer{}, true), "error")
	require.NoError(t, err)
	require.Equal(t, zerolog.ErrorLevel, l.GetLevel())

	_, err = withLevel(base, "loud")
	require.Error(t, err)
}

func TestRequests(t *testing.T) {
	buf := &bytes.Buffer{}
	log := setup(buf, false)

	h := Requests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth2/code/oidc?code=secret-code&state=s", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http request", line["message"])
	require.Equal(t, "GET", line["method"])
	require.Equal(t, "/auth/oauth2/code/oidc", line["path"])
	require.Equal(t, float64(http.StatusTeapot), line["status"])
	require.Equal(t, float64(len("short and stout")), line["size"])
	require.Equal(t, "test-agent", line["user_agent"])
	require.NotEmpty(t, line["req_id"])
	require.NotContains(t, buf.String(), "secret-code")
}
