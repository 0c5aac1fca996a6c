package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/ai"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/bot"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/config"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/database"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/handler"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/jobs"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/middleware"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/redis"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/repository"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

func main() {
	godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Msg("database connected")

	var limiter middleware.RequestLimiter
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisLimiter(redisClient.Client)
		log.Info().Msg("redis connected")
	} else {
		limiter = middleware.NewMemoryLimiter()
	}

	convRepo := repository.NewConversationRepository(db.DB, cfg.MaxMessagesPerHour)
	aiClient := ai.NewClient(cfg.OpenAIAPIKey, cfg.TTSVoice)
	pacing := bot.NewPacing(cfg)

	transport, err := session.NewWhatsmeowTransport(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create whatsapp transport")
	}

	dispatcher := bot.NewDispatcher(transport, convRepo, pacing)
	gate := bot.NewGate(convRepo, aiClient, transport, dispatcher, pacing, cfg.MaxHistoryMessages)

	manager := session.NewManager(transport, gate)
	if err := manager.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize whatsapp session")
	}
	defer manager.Stop()

	authMiddleware := middleware.NewAuthMiddleware(cfg.ConfigTokenHash)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, cfg.OperatorRateLimitPerMin)
	operatorHandler := handler.NewOperatorHandler(manager, authMiddleware.Handler, rateLimitMiddleware.Handler)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Mount("/", operatorHandler.Routes())

	retentionJob := jobs.NewRetentionJob(convRepo, cfg.Retention(), config.RetentionJobInterval)
	retentionJob.Start()
	defer retentionJob.Stop()

	keepAliveJob := jobs.NewKeepAliveJob(fmt.Sprintf("http://localhost:%d/health", cfg.Port), config.KeepAliveInterval)
	keepAliveJob.Start()
	defer keepAliveJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
