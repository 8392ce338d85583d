package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(t *testing.T, mw func(http.Handler) http.Handler, key string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub"}, Admin: []string{"adm"}}

	if code := serve(t, RequireAny(keys), "pub"); code != http.StatusOK {
		t.Fatalf("public key: got %d", code)
	}
	if code := serve(t, RequireAny(keys), "adm"); code != http.StatusOK {
		t.Fatalf("admin key: got %d", code)
	}
	if code := serve(t, RequireAny(keys), "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong key: got %d", code)
	}
	if code := serve(t, RequireAny(keys), ""); code != http.StatusUnauthorized {
		t.Fatalf("missing key: got %d", code)
	}
}

func TestRequireAny_DisabledWithoutKeys(t *testing.T) {
	if code := serve(t, RequireAny(Keys{}), ""); code != http.StatusOK {
		t.Fatalf("no configured keys should pass everything, got %d", code)
	}
}

func TestRequireAdmin(t *testing.T) {
	keys := Keys{Public: []string{"pub"}, Admin: []string{"adm"}}

	if code := serve(t, RequireAdmin(keys), "adm"); code != http.StatusOK {
		t.Fatalf("admin key: got %d", code)
	}
	if code := serve(t, RequireAdmin(keys), "pub"); code != http.StatusForbidden {
		t.Fatalf("public key on an admin route: got %d", code)
	}
	if code := serve(t, RequireAdmin(keys), ""); code != http.StatusForbidden {
		t.Fatalf("missing key: got %d", code)
	}
}

func TestRequireAdmin_DisabledWithoutAdminKeys(t *testing.T) {
	keys := Keys{Public: []string{"pub"}}
	if code := serve(t, RequireAdmin(keys), ""); code != http.StatusOK {
		t.Fatalf("no admin keys should pass everything, got %d", code)
	}
}

func TestReadAuth_BearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer  secret ")
	if got := readAuth(req); got != "secret" {
		t.Fatalf("got %q", got)
	}
}
