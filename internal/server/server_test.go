package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"harmonia/internal/api"
	"harmonia/internal/auth"
	"harmonia/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "harmonia.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	handler := api.NewHandler(store, auth.NewSessionManager(time.Hour))
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv, store
}

func serve(srv *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, r)
	return w
}

func TestPublicRoutesSkipAuthentication(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	payload, _ := json.Marshal(map[string]string{
		"name":     "Listener",
		"email":    "listener@example.com",
		"password": "sup3rsecret",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	w := serve(srv, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected health check to pass, got %d", w.Code)
	}
}

func TestCatalogReadsAreOpenButMutationsAreNot(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/artists", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected anonymous catalog read, got %d (%s)", w.Code, w.Body.String())
	}

	w = serve(srv, httptest.NewRequest(http.MethodPost, "/api/artists", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous mutation, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/playlists/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for the personal listing, got %d", w.Code)
	}
}

func TestInvalidTokenIsRejectedEvenOnOpenRoutes(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	r := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	r.Header.Set("Authorization", "Bearer forged-token")
	w := serve(srv, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected invalid token rejection, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAuthenticatedSessionFlowsThroughMiddleware(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	user, err := store.CreateUser(storage.CreateUserParams{
		Name:     "Listener",
		Email:    "listener@example.com",
		Password: "sup3rsecret",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{
		"email":    "listener@example.com",
		"password": "sup3rsecret",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	w := serve(srv, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected login, got %d (%s)", w.Code, w.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	r.Header.Set("Authorization", "Bearer "+session.Token)
	w = serve(srv, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected profile access, got %d (%s)", w.Code, w.Body.String())
	}
	var profile struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile response: %v", err)
	}
	if profile.ID != user.ID {
		t.Fatalf("expected the logged-in account, got %q", profile.ID)
	}
}

func TestLoginThrottleAnswersRetryAfter(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute},
	})

	attempt := func() *httptest.ResponseRecorder {
		payload, _ := json.Marshal(map[string]string{
			"email":    "listener@example.com",
			"password": "wrongpass",
		})
		r := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(payload))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Forwarded-For", "203.0.113.9")
		return serve(srv, r)
	}

	for i := 0; i < 2; i++ {
		if w := attempt(); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, w.Code)
		}
	}
	w := attempt()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d (%s)", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After hint")
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id on every response")
	}
}

func TestExtractClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:4321"
	if got := extractClientIP(r); got != "192.0.2.10" {
		t.Fatalf("expected the remote host, got %q", got)
	}

	r.Header.Set("X-Real-IP", "198.51.100.7")
	if got := extractClientIP(r); got != "198.51.100.7" {
		t.Fatalf("expected X-Real-IP to win over the socket, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.7")
	if got := extractClientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected the first forwarded hop, got %q", got)
	}
}
