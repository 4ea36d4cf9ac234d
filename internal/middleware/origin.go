package myMiddleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginMiddleware rejects browser requests whose Origin is not on the
// allow-list. Requests without an Origin header (CLI tools, load tests)
// pass through.
type OriginMiddleware struct {
	allowed  map[string]struct{}
	allowAll bool
	logger   *slog.Logger
}

func NewOriginMiddleware(origins []string, logger *slog.Logger) *OriginMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &OriginMiddleware{allowed: make(map[string]struct{}), logger: logger}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			m.allowAll = true
			continue
		}
		normalized, ok := NormalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		m.allowed[normalized] = struct{}{}
	}
	return m
}

// Allowed reports whether the request's Origin may connect.
func (m *OriginMiddleware) Allowed(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || m.allowAll {
		return true
	}
	normalized, ok := NormalizeOrigin(header)
	if !ok {
		return false
	}
	_, exists := m.allowed[normalized]
	return exists
}

func (m *OriginMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Allowed(r) {
			m.logger.Warn("blocked request from disallowed origin", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			http.Error(w, "Origin not allowed", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// NormalizeOrigin lowercases scheme and host and drops everything else.
func NormalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
