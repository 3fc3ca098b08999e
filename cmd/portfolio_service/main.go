package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/auth"
	"portfolio_service/internal/blobstore"
	"portfolio_service/internal/config"
	"portfolio_service/internal/cryptox"
	"portfolio_service/internal/handler"
	"portfolio_service/internal/jobs"
	"portfolio_service/internal/middleware"
	"portfolio_service/internal/service"
	"portfolio_service/internal/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	shutdownTimeout = 30 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the yaml config file")

	flag.Parse()
	if configPath == "" {
		log.Fatal("failed get config path from flags")
	}

	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting portfolio service", slog.String("env", cfg.Env))

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	// Secrets are checked here so a bad deployment never starts serving.
	codec, err := auth.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		fatal(lgr, "invalid token configuration", err)
	}

	edge, err := auth.NewEdgeVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		fatal(lgr, "invalid token configuration", err)
	}

	encryptor, err := cryptox.NewFileEncryptor(cfg.Auth.EncryptionKey)
	if err != nil {
		fatal(lgr, "invalid encryption configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := setupStorage(ctx, cfg)
	if err != nil {
		fatal(lgr, "failed to init storage", err)
	}
	defer st.Close()

	blobs, err := blobstore.NewLocalStore(cfg.Storage.Dir)
	if err != nil {
		fatal(lgr, "failed to init blob store", err)
	}

	svc, err := service.NewService(service.Deps{
		Storage:   st,
		Blobs:     blobs,
		Hasher:    auth.NewPasswordHasher(),
		Codec:     codec,
		Encryptor: encryptor,
		Log:       lgr,
	},
		service.WithSuperusers(cfg.Auth.Superusers...),
		service.WithRetentionDays(cfg.Retention.Days),
	)
	if err != nil {
		fatal(lgr, "failed to init service", err)
	}

	gate := middleware.NewGate(edge, routeRules(cfg.Routes), cfg.SecureCookies(), lgr)

	h := handler.NewHandler(svc, handler.Settings{
		APIVerifier:   codec,
		Gate:          gate,
		SecureCookies: cfg.SecureCookies(),
		StaticDir:     cfg.HTTPServer.StaticDir,
	}, lgr)

	purge := jobs.NewRetentionPurge(svc, jobs.Config{
		Interval:   cfg.Retention.Interval,
		BatchSize:  cfg.Retention.BatchSize,
		BatchDelay: jobs.DefaultConfig().BatchDelay,
		RunTimeout: jobs.DefaultConfig().RunTimeout,
	}, lgr)
	purge.Start()
	defer purge.Stop()

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.InitRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		lgr.Info("http server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		lgr.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			lgr.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("graceful shutdown failed", slog.Any("error", err))
	}

	lgr.Info("portfolio service stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.DB.Driver != config.DriverPostgres {
		return storage.NewMemoryStorage(), nil
	}

	pg, err := storage.NewPostgresStorage(ctx, cfg.DB.DbURL)
	if err != nil {
		return nil, err
	}

	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	return pg, nil
}

func routeRules(cfg config.Routes) middleware.Rules {
	rules := middleware.DefaultRules()
	if len(cfg.Public) > 0 {
		rules.Public = cfg.Public
	}
	if len(cfg.Protected) > 0 {
		rules.Protected = cfg.Protected
	}
	if len(cfg.RoleGates) > 0 {
		rules.RoleGated = make([]middleware.RoleRule, 0, len(cfg.RoleGates))
		for _, g := range cfg.RoleGates {
			rules.RoleGated = append(rules.RoleGated, middleware.RoleRule{Prefix: g.Prefix, Roles: g.Roles})
		}
	}
	rules.DefaultDeny = !cfg.DefaultAllow

	return rules
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
	return log
}
