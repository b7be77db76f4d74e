package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewProviderHTTPClient creates the HTTP client used to talk to the identity
// provider. Discovery documents and signing keys are served with cache headers,
// so responses are kept in an in-memory HTTP cache and revalidated as the
// provider dictates. Requests carrying credentials (token exchange, user-info)
// always go to the provider. Requests are traced when tracing is enabled.
func NewProviderHTTPClient(timeout time.Duration) *http.Client {
	traced := otelhttp.NewTransport(http.DefaultTransport)

	cached := httpcache.NewTransport(httpcache.NewMemoryCache())
	cached.Transport = traced

	return &http.Client{
		Transport: &publicCacheTransport{cached: cached, direct: traced},
		Timeout:   timeout,
	}
}

// publicCacheTransport only serves anonymous GETs from the cache. The cache is
// keyed on the URL alone, so per-user responses must never enter it.
type publicCacheTransport struct {
	cached http.RoundTripper
	direct http.RoundTripper
}

func (t *publicCacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Header.Get("Authorization") != "" {
		return t.direct.RoundTrip(req)
	}
	return t.cached.RoundTrip(req)
}
