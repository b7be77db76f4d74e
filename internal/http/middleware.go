package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ExtractClientIP returns the connection's remote address without the port.
// Forwarding headers are ignored; see ClientIPResolver.
func ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPResolver determines the client address of a request. Forwarding
// headers are only honoured when the connection comes from a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxy addresses or CIDR ranges.
// With none, every request resolves to its remote address.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			res.trusted = append(res.trusted, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		res.trusted = append(res.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return res, nil
}

// ClientIP returns the remote address, or when that is a trusted proxy, the
// right-most X-Forwarded-For hop that is not itself a trusted proxy, falling
// back to X-Real-IP.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	remote := ExtractClientIP(r)
	if c == nil || !c.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !c.isTrusted(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIPFromContext returns the client IP stored by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the client IP in the request context for session
// audit fields and rate limiting. A nil resolver trusts no proxies.
func ClientIPMiddleware(resolver *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolver.ClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
