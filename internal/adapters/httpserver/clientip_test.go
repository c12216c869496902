package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lsmadison/clinic-forms/internal/adapters/httpserver"
	"github.com/lsmadison/clinic-forms/internal/core"
)

func TestClientIPResolver(t *testing.T) {
	headers := []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:    "first configured header wins",
			headers: map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Real-IP": "10.0.0.1"},
			want:    "198.51.100.1",
		},
		{
			name:    "falls through to later headers",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.2"},
			want:    "198.51.100.2",
		},
		{
			name:    "forwarded-for takes the first entry",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.3, 10.0.0.1, 172.16.0.1"},
			want:    "198.51.100.3",
		},
		{
			name:       "remote address fallback",
			remoteAddr: "192.0.2.9:51234",
			want:       "192.0.2.9",
		},
		{
			name:       "nothing resolvable",
			remoteAddr: "",
			want:       core.UnknownClient,
		},
	}

	resolver := httpserver.NewClientIPResolver(headers)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := resolver.Resolve(req); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
