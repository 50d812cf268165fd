//	@title			Barangku API
//	@version		1.0
//	@description	Inventory tracking API: per-user items with optional images.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	IdentityHeader
//	@in							header
//	@name						Authorization
//	@description				Caller identity. Raw identity string in header mode, **Bearer {token}** in jwt mode.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"

	"github.com/barangku/service/internal/api"
	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/config"
	"github.com/barangku/service/internal/db"
	"github.com/barangku/service/internal/item"
	"github.com/barangku/service/internal/logging"
	"github.com/barangku/service/internal/storage"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: logging.FormatFor(cfg.AppEnv, cfg.LogFormat),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("repository init failed")
	}
	defer closeRepo()

	store, static, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage init failed")
	}

	authn, err := newAuthenticator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("authenticator init failed")
	}

	// Wire dependencies: repository → service → handler
	opts := item.Options{
		AllowedImageExtensions: cfg.AllowedImageExtensions,
		MaxUploadBytes:         cfg.MaxUploadBytes,
	}
	itemSvc := item.NewService(repo, store, opts)
	itemHandler := item.NewHandler(itemSvc, store, opts)

	router := api.NewRouter(api.Deps{
		Items:              itemHandler,
		Authenticator:      authn,
		Static:             static,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// Background services: orphaned image sweeper
	sup := suture.New("barangku", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Str("event", e.String()).Msg("supervisor")
		},
	})
	sup.Add(item.NewSweeper(repo, store, cfg.ImageGCInterval))
	supErr := sup.ServeBackground(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		log.Info().Msgf("swagger UI at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := <-supErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor stopped with error")
	}

	log.Info().Msg("server stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (item.Repository, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("using in-memory repository; data is lost on restart")
		return item.NewMemoryRepository(), func() {}, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if _, err := db.Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return item.NewPostgresRepository(pool), pool.Close, nil
	default:
		return nil, nil, errors.New("unknown DB_DRIVER " + cfg.DBDriver)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, api.StaticFiles, error) {
	switch cfg.StorageBackend {
	case "local":
		local, err := storage.NewLocalStorage(cfg.UploadDir, cfg.UploadURLPrefix)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	case "minio":
		s3, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		return nil, nil, errors.New("unknown STORAGE_BACKEND " + cfg.StorageBackend)
	}
}

func newAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	switch cfg.AuthMode {
	case "header":
		return auth.NewHeaderAuthenticator(cfg.AdminIdentity), nil
	case "jwt":
		if cfg.IsProduction() && cfg.JWTSecret == "change_me_in_production" {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		return auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.AdminIdentity), nil
	default:
		return nil, errors.New("unknown AUTH_MODE " + cfg.AuthMode)
	}
}
