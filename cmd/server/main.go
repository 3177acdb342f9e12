package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helios-backend/ai"
	"helios-backend/cache"
	"helios-backend/config"
	"helios-backend/extractor"
	"helios-backend/handlers"
	"helios-backend/job"
	"helios-backend/logger"
	"helios-backend/repository"
	"helios-backend/service"
	"helios-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config is not known yet
		logger.New("info", "json").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := initPostgres(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()
	log.Info("postgres connection established")

	// Initialize storage
	fileStorage, err := storage.NewStorage(ctx, storage.StorageConfig{
		Type:         storage.StorageType(cfg.Storage.Type),
		LocalPath:    cfg.Storage.LocalPath,
		S3Bucket:     cfg.Storage.S3Bucket,
		S3Region:     cfg.Storage.S3Region,
		S3Endpoint:   cfg.Storage.S3Endpoint,
		AWSAccessKey: cfg.Storage.AWSAccessKey,
		AWSSecretKey: cfg.Storage.AWSSecretKey,
	})
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	log.Info("storage initialized", zap.String("type", cfg.Storage.Type))

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	fileRepo := repository.NewFileRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize AI providers
	if cfg.AI.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set")
	}
	geminiClient, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey)
	if err != nil {
		log.Fatal("failed to initialize Gemini", zap.Error(err))
	}
	defer geminiClient.Close()
	gemini := ai.NewGeminiProvider(geminiClient, ai.GeminiWithLogger(log))

	router := ai.NewRouter("gemini").Register("gemini", gemini)
	if cfg.AI.OllamaBaseURL != "" {
		router.Register("ollama", ai.NewChatModelProvider("ollama", ai.OllamaFactory(cfg.AI.OllamaBaseURL)))
		log.Info("ollama provider registered", zap.String("base_url", cfg.AI.OllamaBaseURL))
	}
	if cfg.AI.OpenAIAPIKey != "" {
		router.Register("openai", ai.NewChatModelProvider("openai", ai.OpenAIFactory(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL)))
		log.Info("openai provider registered")
	}

	// Initialize extractors
	pdfExtractor, err := extractor.NewPDFExtractor(ctx)
	if err != nil {
		log.Fatal("failed to initialize PDF parser", zap.Error(err))
	}
	registry := extractor.NewRegistry(
		extractor.WithPDF(pdfExtractor),
		extractor.WithDOCX(extractor.NewDOCXExtractor()),
		extractor.WithImage(extractor.NewImageExtractor(gemini, cfg.AI.OCRModel)),
		extractor.WithLogger(log),
	)

	// Initialize analysis engine
	validator, err := service.NewSchemaValidator()
	if err != nil {
		log.Fatal("failed to compile analysis schema", zap.Error(err))
	}
	engine := service.NewAnalysisEngine(router,
		service.EngineWithConfig(service.EngineConfig{
			FallbackModels:    cfg.AI.FallbackModels,
			CallTimeout:       cfg.AI.CallTimeout,
			BackoffBase:       cfg.AI.BackoffBase,
			BackoffMax:        cfg.AI.BackoffMax,
			Temperature:       cfg.AI.Temperature,
			RetryOnParseError: cfg.AI.RetryOnParseError,
		}),
		service.EngineWithSchemaValidator(validator),
		service.EngineWithLogger(log),
	)
	resolver := service.NewModelResolver(cfg.AI.StandardModel, cfg.AI.FastModel, cfg.AI.SizeThreshold, log)

	serviceOpts := []service.ContractServiceOption{
		service.WithExtractor(registry),
		service.WithAnalyzer(engine),
		service.WithModelResolver(resolver),
		service.WithContractRepository(contractRepo),
		service.WithFileRepository(fileRepo),
		service.WithStorage(fileStorage),
		service.WithLimits(cfg.Server.MaxFileSize, cfg.Analysis.MaxChars, cfg.Analysis.MinChars),
		service.WithServiceLogger(log),
	}

	// Initialize cache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, analysis cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			serviceOpts = append(serviceOpts, service.WithCache(cache.NewAnalysisCache(rdb, cfg.Redis.TTL)))
			log.Info("analysis cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	contractService := service.NewContractService(serviceOpts...)

	// Schedule renewal reminders
	scanner := job.NewRenewalScanner(contractRepo, nil,
		job.WithWindow(time.Duration(cfg.Jobs.RenewalWindowDays)*24*time.Hour),
		job.WithLogger(log),
	)
	scheduler, err := scanner.Start(cfg.Jobs.RenewalCron)
	if err != nil {
		log.Fatal("failed to schedule renewal scan", zap.Error(err))
	}
	defer scheduler.Stop()

	// Initialize handlers
	contractHandler := handlers.NewContractHandler(contractService,
		handlers.WithUserLookup(userRepo),
		handlers.WithUploadLimits(cfg.Server.MaxFileSize, cfg.Server.MaxFiles),
		handlers.WithHandlerLogger(log),
	)
	fileHandler := handlers.NewFileHandler(fileRepo, fileStorage)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(log, contractHandler, fileHandler),
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
