package httpserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/lsmadison/clinic-forms/internal/core"
)

// ClientIPResolver extracts the client address used as the rate limit key.
// Headers are consulted in configured order so deployments behind a proxy or
// CDN can put the trusted header first.
type ClientIPResolver struct {
	headers []string
}

// NewClientIPResolver creates a resolver over an ordered header list
func NewClientIPResolver(headers []string) *ClientIPResolver {
	return &ClientIPResolver{headers: headers}
}

// Resolve returns the client address for a request, or core.UnknownClient
// when nothing usable is present. Multi-valued headers like X-Forwarded-For
// yield their first entry, the address closest to the client.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	for _, header := range c.headers {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		first, _, _ := strings.Cut(value, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return core.UnknownClient
}
