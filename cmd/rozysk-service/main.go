package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rozysk-service/internal/address"
	"rozysk-service/internal/auth"
	"rozysk-service/internal/client"
	"rozysk-service/internal/config"
	"rozysk-service/internal/db"
	httphandler "rozysk-service/internal/http"
	"rozysk-service/internal/http/middleware"
	"rozysk-service/internal/logger"
	"rozysk-service/internal/repository"
	"rozysk-service/internal/service"
	"rozysk-service/internal/session"
	"rozysk-service/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	lexicon, err := loadLexicon(cfg.Processing.LexiconPath)
	if err != nil {
		appLogger.Fatal().Err(err).Str("path", cfg.Processing.LexiconPath).Msg("failed to load lexicon")
	}

	sessions, err := newSessionStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to init session store")
	}

	pipeline := table.NewPipeline(lexicon,
		table.WithPlateColumn(cfg.Processing.PlateColumn),
		table.WithLogger(appLogger.With().Str("component", "pipeline").Logger()),
	)

	jobRepo := repository.NewJobRepository(database)
	batchClient := client.NewBatchClient(cfg)
	processingService := service.NewProcessingService(
		pipeline,
		sessions,
		jobRepo,
		batchClient,
		service.ProcessingOptions{
			ChunkSize: cfg.Processing.ChunkSize,
			MaxBytes:  cfg.Upload.MaxBytes,
		},
		appLogger,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(processingService, middleware.NewUploadLimiter(cfg.Upload.RatePerMinute), appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterOptions{
		Env:            cfg.Environment,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Log:            appLogger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	appLogger.Info().Str("addr", addr).Str("sessions", cfg.Session.Backend).Msg("starting rozysk service")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}

func loadLexicon(path string) (*address.Lexicon, error) {
	if path == "" {
		return address.DefaultLexicon(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return address.LoadLexicon(f)
}

func newSessionStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (session.Store, error) {
	if cfg.Session.Backend == config.SessionBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}

		log.Info().Str("addr", cfg.Session.RedisAddr).Msg("redis session store connected")
		return session.NewRedisStore(rdb, cfg.Session.TTL), nil
	}

	store := session.NewMemoryStore(cfg.Session.TTL)
	go store.Run(ctx, log.With().Str("component", "sessions").Logger())
	return store, nil
}
