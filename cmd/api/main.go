package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"taskmanager.org/internal/auth"
	"taskmanager.org/internal/config"
	"taskmanager.org/internal/httpapi"
	"taskmanager.org/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		obs.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := obs.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	obs.SetLogger(logger)

	// Metrics registration
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Credential store: PostgreSQL when a DSN is set, otherwise in memory.
	var (
		db    *sql.DB
		store auth.AccountStore
	)
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = auth.NewPGStore(db)
	} else {
		logger.Warn("no database configured, using in-memory credential store")
		store = auth.NewMemoryStore()
	}

	hasher := auth.BcryptHasher{}
	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := auth.Bootstrap(bootCtx, store, hasher, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword)
	cancel()
	if err != nil {
		return err
	}
	if created {
		logger.Info("bootstrap admin created", "subject", auth.NormalizeSubject(cfg.Auth.BootstrapEmail))
	}

	codec, err := auth.NewCodec([]byte(cfg.Auth.SigningSecret), cfg.Auth.TokenTTL())
	if err != nil {
		return err
	}
	if cfg.Auth.TokenTTLMillis <= 0 {
		logger.Warn("token ttl is not positive, every issued token is already expired", "ttl_ms", cfg.Auth.TokenTTLMillis)
	}

	api := httpapi.New(httpapi.Options{
		Version: version,
		Ready:   httpapi.ReadyProbe{DB: db},
		Service: auth.NewService(store, hasher, codec),
		Authenticator: auth.NewAuthenticator(codec, store, auth.AuthenticatorConfig{
			APIPrefix:    cfg.Auth.APIPrefix,
			SkipPrefixes: cfg.Auth.SkipPrefixes,
		}),
		Registrar: auth.NewRegistrar(store, hasher),
		Limiter:   httpapi.NewLoginRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting taskmanager-api", "version", version, "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logger.Info("shutting down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
