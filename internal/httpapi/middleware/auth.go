package middleware

import (
	"net/http"
	"strings"
)

// Keys holds the configured API keys per tier. An empty tier disables its
// guard, so a bare local setup needs no keys at all.
type Keys struct {
	Public []string
	Admin  []string
}

// readAuth accepts either "Authorization: Bearer <key>" or "X-API-Key".
func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func hasKey(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

func guard(enabled bool, status int, body string, allowed func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed(r) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		})
	}
}

// RequireAny admits requests carrying any configured key, public or admin.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Public) > 0 || len(keys.Admin) > 0
	return guard(enabled, http.StatusUnauthorized, `{"error":"unauthorized"}`, func(r *http.Request) bool {
		key := readAuth(r)
		return hasKey(key, keys.Public) || hasKey(key, keys.Admin)
	})
}

// RequireAdmin admits only admin keys. With no admin keys configured it is
// a pass-through.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	return guard(len(keys.Admin) > 0, http.StatusForbidden, `{"error":"forbidden"}`, func(r *http.Request) bool {
		return hasKey(readAuth(r), keys.Admin)
	})
}
