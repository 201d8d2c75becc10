package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"harmonia/internal/observability/logging"
)

func TestRequestIDMiddlewareRespectsIncomingHeader(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	r.Header.Set("X-Request-Id", "upstream-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if seen != "upstream-id" {
		t.Fatalf("expected the incoming id on context, got %q", seen)
	}
	if got := w.Header().Get("X-Request-Id"); got != "upstream-id" {
		t.Fatalf("expected the id echoed, got %q", got)
	}
}

func TestRequestIDMiddlewareGeneratesWhenMissing(t *testing.T) {
	handler := requestIDMiddlewareWithGenerator(nil, func() string { return "generated-id" }, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _ := logging.RequestIDFromContext(r.Context()); id != "generated-id" {
			t.Error("expected the generated id on context")
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/songs", nil))

	if got := w.Header().Get("X-Request-Id"); got != "generated-id" {
		t.Fatalf("expected the generated id on the response, got %q", got)
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	first := newRequestID()
	second := newRequestID()
	if first == "" || first == second {
		t.Fatalf("expected distinct ids, got %q and %q", first, second)
	}
}
