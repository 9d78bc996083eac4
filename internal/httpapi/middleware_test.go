package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"covoy.app/internal/auth"
)

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/data/notifications", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Missing authorization token" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/data/notifications", "Bearer not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthStoresIdentity(t *testing.T) {
	setAuthSecret(t)
	api := &API{}
	var got auth.Identity
	h := api.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = identity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearerFor(t, testUserID, testEmail))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != testUserID || got.Email != testEmail {
		t.Fatalf("identity = %+v", got)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("X-Request-Id header missing")
	}
}

func TestCORSPreflight(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/data/rides", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS headers")
	}
}

func TestRateLimitEventuallyRejects(t *testing.T) {
	limited := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("final status = %d, want 429", last)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh client status = %d, want 200", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "127.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
}
