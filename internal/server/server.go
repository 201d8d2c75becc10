package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"harmonia/internal/api"
)

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr        string
	TLS         TLSConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Security    SecurityConfig
	Logger      *slog.Logger
	AuditLogger *slog.Logger
}

type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	auditLogger *slog.Logger
	rateLimiter *rateLimiter
	tlsCertFile string
	tlsKeyFile  string
}

func New(handler *api.Handler, cfg Config) (*Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handler.Health)

	mux.HandleFunc("/api/users/register", handler.Register)
	mux.HandleFunc("/api/users/login", handler.Login)
	mux.HandleFunc("/api/users/logout", handler.Logout)
	mux.HandleFunc("/api/users/profile", handler.Profile)
	mux.HandleFunc("/api/users/password", handler.Password)
	mux.HandleFunc("/api/users/like-song/", handler.LikeSong)
	mux.HandleFunc("/api/users/like-album/", handler.LikeAlbum)
	mux.HandleFunc("/api/users/follow-artist/", handler.FollowArtist)
	mux.HandleFunc("/api/users/follow-playlist/", handler.FollowPlaylist)
	mux.HandleFunc("/api/users", handler.Users)
	mux.HandleFunc("/api/users/", handler.UserByID)

	mux.HandleFunc("/api/artists/top", handler.TopArtists)
	mux.HandleFunc("/api/artists", handler.Artists)
	mux.HandleFunc("/api/artists/", handler.ArtistByID)

	mux.HandleFunc("/api/albums/new-releases", handler.NewReleases)
	mux.HandleFunc("/api/albums", handler.Albums)
	mux.HandleFunc("/api/albums/", handler.AlbumByID)

	mux.HandleFunc("/api/songs/top", handler.TopSongs)
	mux.HandleFunc("/api/songs", handler.Songs)
	mux.HandleFunc("/api/songs/", handler.SongByID)

	mux.HandleFunc("/api/playlists/me", handler.MyPlaylists)
	mux.HandleFunc("/api/playlists", handler.Playlists)
	mux.HandleFunc("/api/playlists/", handler.PlaylistByID)

	corsPolicy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, err
	}

	rl := newRateLimiter(cfg.RateLimit)
	handlerChain := http.Handler(mux)
	handlerChain = authMiddleware(handler, handlerChain)
	handlerChain = rateLimitMiddleware(rl, cfg.Logger, handlerChain)
	handlerChain = auditMiddleware(cfg.AuditLogger, handlerChain)
	handlerChain = corsMiddleware(corsPolicy, cfg.Logger, handlerChain)
	handlerChain = securityHeadersMiddleware(cfg.Security, handlerChain)
	handlerChain = loggingMiddleware(cfg.Logger, handlerChain)
	handlerChain = requestIDMiddleware(cfg.Logger, handlerChain)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlerChain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := &Server{
		httpServer:  httpServer,
		logger:      cfg.Logger,
		auditLogger: cfg.AuditLogger,
		rateLimiter: rl,
		tlsCertFile: strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
	}

	if srv.tlsCertFile != "" && srv.tlsKeyFile != "" {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return srv, nil
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}

	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close releases auxiliary resources such as the Redis login counter.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

// HTTPServer exposes the underlying http.Server for custom run loops.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func requestFields(r *http.Request, status int, elapsed time.Duration) []any {
	return []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
		"remote_ip", extractClientIP(r),
	}
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		loggerWithRequestContext(r.Context(), logger).Info("request completed",
			requestFields(r, recorder.status, time.Since(start))...)
	})
}

func rateLimitMiddleware(rl *rateLimiter, logger *slog.Logger, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.AllowRequest() {
			api.WriteError(w, http.StatusTooManyRequests, fmt.Errorf("global rate limit exceeded"))
			return
		}
		if isLoginAttempt(r) && !throttleLogin(rl, logger, w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoginAttempt(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/api/users/login"
}

// throttleLogin reports whether the login attempt may proceed, writing the
// throttle response itself when it may not.
func throttleLogin(rl *rateLimiter, logger *slog.Logger, w http.ResponseWriter, r *http.Request) bool {
	allowed, retryAfter, err := rl.AllowLogin(extractClientIP(r))
	if err != nil {
		if logger != nil {
			logger.Error("rate limiter failure", "error", err)
		}
		api.WriteError(w, http.StatusServiceUnavailable, fmt.Errorf("rate limit failure"))
		return false
	}
	if allowed {
		return true
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
	}
	api.WriteError(w, http.StatusTooManyRequests, fmt.Errorf("too many login attempts"))
	return false
}

// auditMiddleware records API mutations with the acting account attached.
func auditMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(sr, r)
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			return
		}
		fields := requestFields(r, sr.status, time.Since(start))
		if user, ok := api.UserFromContext(r.Context()); ok {
			fields = append(fields, "user_id", user.ID)
		}
		logger.Info("audit", fields...)
	})
}

// extractClientIP prefers proxy-set headers over the socket address so the
// login throttle keys on the real caller behind a load balancer.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// authMiddleware resolves the session token once and stores the account on
// the request context. Catalog reads stay reachable without a token so the
// public browsing surface works for anonymous listeners.
func authMiddleware(handler *api.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasPrefix(path, "/api/") || isPublicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}
		optionalAuth := isOptionalAuthRoute(r)
		token := api.ExtractToken(r)
		if token == "" {
			if optionalAuth {
				next.ServeHTTP(w, r)
				return
			}
			api.WriteError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		user, err := handler.AuthenticateRequest(r)
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, err)
			return
		}
		ctx := api.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicRoute(r *http.Request) bool {
	switch r.URL.Path {
	case "/api/users/register", "/api/users/login", "/api/users/logout":
		return true
	}
	return false
}

// isOptionalAuthRoute marks catalog reads that anonymous listeners may hit.
// Playlist visibility is still enforced by the handlers.
func isOptionalAuthRoute(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	path := r.URL.Path
	switch {
	case path == "/api/playlists/me":
		return false
	case path == "/api/artists" || strings.HasPrefix(path, "/api/artists/"):
		return true
	case path == "/api/albums" || strings.HasPrefix(path, "/api/albums/"):
		return true
	case path == "/api/songs" || strings.HasPrefix(path, "/api/songs/"):
		return true
	case path == "/api/playlists" || strings.HasPrefix(path, "/api/playlists/"):
		return true
	}
	return false
}
