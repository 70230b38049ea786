package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/command_router"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/config"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/conversation"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/gemini"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/geocoder"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/handler"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/metrics"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/notification"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/photo_store"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/repository"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/server"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/service"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/telegram_bot"
)

func main() {
	defaultConfig := os.Getenv("WATERALERT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yml"
	}
	cfgPath := flag.String("config", defaultConfig, "path to the YAML configuration file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}

	// Secrets usually live in .env next to the binary
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *cfgPath))
	}

	if cfg.Log.Production {
		if logger, err = zap.NewProduction(); err != nil {
			panic(err)
		}
		gin.SetMode(gin.ReleaseMode)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Database connection
	db, err := repository.NewDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, cfg.Database.Type, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Severity classifier: Gemini when a key is configured, simulation otherwise
	simulated := classifier.NewSimulated(time.Second)
	var primary classifier.Classifier = simulated
	if cfg.SimulatedClassifier() {
		logger.Warn("GEMINI_API_KEY not configured, photo analysis runs in simulation mode")
	} else {
		geminiClient, err := gemini.NewClient(gemini.Config{
			APIKey:            cfg.Gemini.APIKey,
			ModelName:         cfg.Gemini.ModelName,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
			Timeout:           cfg.Gemini.Timeout,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize Gemini, continuing in simulation mode", zap.Error(err))
		} else {
			defer geminiClient.Close()
			primary = geminiClient
		}
	}

	geo := geocoder.NewClient(geocoder.Config{
		BaseURL:           cfg.Geocoder.BaseURL,
		UserAgent:         cfg.Geocoder.UserAgent,
		RequestsPerSecond: cfg.Geocoder.RequestsPerSecond,
		Timeout:           cfg.Geocoder.Timeout,
	}, logger)

	photos, err := photo_store.New(cfg.Photos.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize photo store", zap.Error(err))
	}

	bot, err := telegram_bot.NewBot(cfg.Telegram, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram bot", zap.Error(err))
	}

	// Initialize repositories and services
	reportRepo := repository.NewReportRepository(db, logger)
	dispatcher := notification.NewDispatcher(bot, m, logger)
	reportService := service.NewReportService(reportRepo, dispatcher, cfg.Notifications.Timeout, m, logger)

	engine := conversation.NewEngine(conversation.Deps{
		Classifier: primary,
		Fallback:   simulated,
		Store:      reportRepo,
		Geocoder:   geo,
		Photos:     photos,
		Files:      bot,
		Channel:    bot,
		Metrics:    m,
	}, logger)
	router := command_router.NewRouter(engine, reportService, bot, logger)

	sweeper, err := conversation.NewSweeper(engine, cfg.Sessions.Sweep, cfg.Sessions.TTL, logger)
	if err != nil {
		logger.Fatal("Failed to schedule session sweeper", zap.Error(err))
	}

	srv := server.NewServer(cfg.Server.Port, handler.NewLeakHandler(reportService, logger), registry, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Start(gctx, router) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
	}

	engine.Close()
	router.Wait()
	reportService.Wait()
	logger.Info("Application stopped.")
}
