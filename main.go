package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/api"
	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/metrics"
	"portfolio/internal/redis"
	"portfolio/internal/service/ai"
	"portfolio/internal/service/portfolio"
	"portfolio/internal/storage"
	"portfolio/internal/worker"
)

func main() {
	cfgPath := os.Getenv("PORTFOLIO_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLogger := logging.New(os.Stderr, false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(os.Stdout, cfg.BasicConfig.Debug)
	if !cfg.BasicConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	dbType := os.Getenv("PORTFOLIO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	logger.Info().Str("db", dbType).Msg("opening database")
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	// Create necessary tables: admins, admin_tokens, projects, resume_meta, contact_messages
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("create redis client")
	}
	defer rdb.Close()
	if !rdb.Enabled() {
		logger.Info().Msg("redis disabled, using in-process rate limits and token checks")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portfolioSvc := portfolio.NewService(db, cfg.BasicConfig.UploadDir, int64(cfg.BasicConfig.MaxUploadMB)<<20, logger)
	authSvc := auth.NewService(db, rdb, time.Duration(cfg.Admin.TokenTTLMinutes)*time.Minute, logger)
	authSvc.StartPurger(ctx, auth.DefaultPurgeInterval)

	knowledge, err := ai.NewKnowledge(ctx, cfg.Knowledge.Documents, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load knowledge")
	}
	if meta, err := portfolioSvc.ResumeFile(ctx); err == nil {
		if err := knowledge.IndexResume(ctx, meta.FilePath); err != nil {
			logger.Warn().Err(err).Msg("index stored resume")
		}
	}
	logger.Info().Int("chunks", knowledge.Len()).Msg("knowledge loaded")
	aiSvc, err := ai.NewServiceFromConfig(ctx, cfg, knowledge, portfolioSvc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init ai service")
	}

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
		OnWorkersChanged: func(running int) {
			metrics.Workers.Set(float64(running))
		},
	}, logger)
	defer dispatcher.Close()

	handlers := api.NewHandler(portfolioSvc, authSvc, aiSvc, dispatcher, api.NewRateLimiter(rdb, logger), logger, api.Options{
		ChatRateLimit:    cfg.BasicConfig.ChatRateLimit,
		ContactRateLimit: cfg.BasicConfig.ContactRateLimit,
		AllowedOrigins:   cfg.AllowedOriginList(),
		TrustedProxies:   cfg.TrustedProxyList(),
		Knowledge:        knowledge,
	})

	srv := &http.Server{
		Addr:        cfg.BasicConfig.ServerAddress,
		Handler:     handlers.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("ai_configured", aiSvc.Configured()).
			Msg("starting portfolio server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}
