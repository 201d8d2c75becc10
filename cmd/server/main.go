// Command server starts the Harmonia catalog API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harmonia/internal/api"
	"harmonia/internal/auth"
	"harmonia/internal/config"
	"harmonia/internal/media"
	"harmonia/internal/observability/logging"
	"harmonia/internal/server"
	"harmonia/internal/serverutil"
	"harmonia/internal/storage"
)

func main() {
	configPath := flag.String("config", "harmonia.toml", "path to the TOML configuration file")
	addrOverride := flag.String("addr", "", "override the configured listen address")
	dataOverride := flag.String("data", "", "override the configured catalog file path")
	logLevelOverride := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dataOverride != "" {
		cfg.Storage.Path = *dataOverride
	}
	if *logLevelOverride != "" {
		cfg.Logging.Level = *logLevelOverride
	}

	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := run(cfg, *addrOverride, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, addrOverride string, logger *slog.Logger) error {
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	// Counters are derived from the relation sets, so drift found at
	// startup is repaired before serving traffic.
	if err := store.ReconcileRelationCounters(); err != nil {
		if storage.IsKind(err, storage.KindPartialFailure) {
			logger.Warn("relation counters repaired at startup", "detail", err.Error())
		} else {
			return fmt.Errorf("reconcile relation counters: %w", err)
		}
	}

	sessions, closeSessions, err := buildSessionManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	handler := api.NewHandler(store, sessions)
	if cfg.Media.Endpoint != "" {
		uploader, err := media.NewClient(media.Config{
			Endpoint:       cfg.Media.Endpoint,
			PublicEndpoint: cfg.Media.PublicEndpoint,
			AccessKey:      cfg.Media.AccessKey,
			SecretKey:      cfg.Media.SecretKey,
			RequestTimeout: time.Duration(cfg.Media.RequestTimeoutMS) * time.Millisecond,
			MaxAttempts:    cfg.Media.MaxAttempts,
			RetryInterval:  time.Duration(cfg.Media.RetryIntervalMS) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("configure media uploads: %w", err)
		}
		handler.Media = uploader
	} else {
		logger.Warn("media endpoint not configured, uploads are disabled")
	}

	if err := seedAdmin(store, cfg.Admin, logger); err != nil {
		return err
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr(cfg, addrOverride),
		TLS: server.TLSConfig{
			CertFile: cfg.Server.TLSCertFile,
			KeyFile:  cfg.Server.TLSKeyFile,
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     cfg.Limits.GlobalRPS,
			GlobalBurst:   cfg.Limits.GlobalBurst,
			LoginLimit:    cfg.Limits.LoginLimit,
			LoginWindow:   cfg.LoginWindow(),
			RedisAddr:     cfg.Limits.RedisAddr,
			RedisPassword: cfg.Limits.RedisPassword,
			RedisTimeout:  cfg.RedisTimeout(),
		},
		CORS:        server.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins},
		Logger:      logger,
		AuditLogger: logging.WithComponent(logger, "audit"),
	})
	if err != nil {
		return fmt.Errorf("configure server: %w", err)
	}

	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopPurger := startSessionPurgeWorker(ctx, logger, sessions, cfg.SessionPurgeInterval())
	defer stopPurger()

	logger.Info("server listening", "addr", listenAddr(cfg, addrOverride))
	if err := serverutil.Run(ctx, serverutil.Config{
		Server: srv.HTTPServer(),
		TLS: serverutil.TLSConfig{
			CertFile: cfg.Server.TLSCertFile,
			KeyFile:  cfg.Server.TLSKeyFile,
		},
		ShutdownTimeout: 15 * time.Second,
	}); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func listenAddr(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Address()
}

func buildSessionManager(cfg *config.Config, logger *slog.Logger) (*auth.SessionManager, func(), error) {
	opts := []auth.SessionOption{}
	if timeout := cfg.SessionIdleTimeout(); timeout > 0 {
		opts = append(opts, auth.WithIdleTimeout(timeout))
	}

	if cfg.Sessions.PostgresDSN == "" {
		sessions := auth.NewSessionManager(cfg.SessionTTL(), opts...)
		return sessions, func() {}, nil
	}

	pgStore, err := auth.NewPostgresSessionStore(cfg.Sessions.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect session store: %w", err)
	}
	logger.Info("using postgres session store")
	opts = append(opts, auth.WithStore(pgStore))
	sessions := auth.NewSessionManager(cfg.SessionTTL(), opts...)
	closeStore := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pgStore.Close(ctx); err != nil {
			logger.Error("close session store", "error", err)
		}
	}
	return sessions, closeStore, nil
}

// seedAdmin creates the bootstrap administrator when configured and absent.
func seedAdmin(store *storage.Storage, admin config.AdminConfig, logger *slog.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}
	if _, ok := store.FindUserByEmail(admin.Email); ok {
		return nil
	}
	name := admin.Name
	if name == "" {
		name = "Administrator"
	}
	user, err := store.CreateUser(storage.CreateUserParams{
		Name:     name,
		Email:    admin.Email,
		Password: admin.Password,
		IsAdmin:  true,
	})
	if err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	logger.Info("created bootstrap admin", "user_id", user.ID)
	return nil
}
