package myMiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name    string
		allowed []string
		origin  string
		code    int
	}{
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", http.StatusNoContent},
		{"case and path ignored", []string{"HTTP://LocalHost:5173/app"}, "http://localhost:5173", http.StatusNoContent},
		{"other origin", []string{"http://localhost:5173"}, "http://evil.example", http.StatusForbidden},
		{"no origin header", []string{"http://localhost:5173"}, "", http.StatusNoContent},
		{"wildcard", []string{"*"}, "http://anything.example", http.StatusNoContent},
		{"garbage origin", []string{"http://localhost:5173"}, "not a url", http.StatusForbidden},
		{"invalid config entry skipped", []string{"localhost", ""}, "http://localhost", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewOriginMiddleware(tt.allowed, nil)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			m.Handle(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestNormalizeOrigin(t *testing.T) {
	got, ok := NormalizeOrigin("HTTPS://Example.COM:8443/path?q=1")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com:8443", got)

	_, ok = NormalizeOrigin("example.com")
	assert.False(t, ok)
}
