package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP_remoteAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{
			name:       "IPv4 with port",
			remoteAddr: "192.168.1.1:54321",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 with port",
			remoteAddr: "[2001:db8::1]:54321",
			expected:   "2001:db8::1",
		},
		{
			name:       "no port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestExtractClientIP_ignoresForwardingHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	r.Header.Set("X-Real-IP", "198.51.100.2")

	require.Equal(t, "203.0.113.9", ExtractClientIP(r))
}

func TestNewClientIPResolver(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.168.1.1", " ", "::1"})
	require.NoError(t, err)

	_, err = NewClientIPResolver([]string{"10.0.0.0/33"})
	require.Error(t, err)

	_, err = NewClientIPResolver([]string{"proxy.internal"})
	require.Error(t, err)
}

func TestClientIPResolver_ClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		expected   string
	}{
		{
			name:       "untrusted peer ignores X-Forwarded-For",
			remoteAddr: "203.0.113.9:4000",
			xff:        "198.51.100.1",
			expected:   "203.0.113.9",
		},
		{
			name:       "untrusted peer ignores X-Real-IP",
			remoteAddr: "203.0.113.9:4000",
			xri:        "198.51.100.1",
			expected:   "203.0.113.9",
		},
		{
			name:       "trusted proxy uses right-most untrusted hop",
			remoteAddr: "10.0.0.5:4000",
			xff:        "198.51.100.66, 203.0.113.1, 10.0.0.7",
			expected:   "203.0.113.1",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.0.0.5:4000",
			xri:        "203.0.113.1",
			expected:   "203.0.113.1",
		},
		{
			name:       "trusted proxy without headers",
			remoteAddr: "10.0.0.5:4000",
			expected:   "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}

			require.Equal(t, tt.expected, resolver.ClientIP(r))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var capturedIP string
	handler := ClientIPMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedIP = ClientIPFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.1")

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "192.0.2.10", capturedIP)
}

func TestClientIPFromContext_missing(t *testing.T) {
	ctx := context.Background()

	ip := ClientIPFromContext(ctx)
	require.Empty(t, ip)
}
