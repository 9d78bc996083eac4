package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePatternPrefersChiPattern(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/data/profiles/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		got = routePattern(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/data/profiles/abc-123", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "/data/profiles/{user_id}" {
		t.Fatalf("expected route pattern, got %q", got)
	}
}

func TestRoutePatternFallsBackToRawPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/unrouted/path", nil)
	if got := routePattern(req); got != "/unrouted/path" {
		t.Fatalf("expected raw path, got %q", got)
	}
}
