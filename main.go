package main

import (
	"context"
	"os"
	"time"

	"notivate/internal/api"
	"notivate/internal/auth"
	"notivate/internal/config"
	"notivate/internal/logger"
	"notivate/internal/redis"
	"notivate/internal/service/guide"
	"notivate/internal/service/notes"
	"notivate/internal/service/ocr"
	"notivate/internal/service/transform"
	"notivate/internal/service/usage"
	"notivate/internal/storage"
	"notivate/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Setup()
	log := logger.WithComponent("main")

	cfg, err := config.Load(os.Getenv("NOTIVATE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	dbType := os.Getenv("NOTIVATE_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Redis only caches verified identities; run without it if absent.
	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, identity caching disabled")
		rdb = nil
	} else {
		defer rdb.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor, err := ocr.NewVisionExtractor(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("init ocr client")
	}
	defer extractor.Close()

	provider := os.Getenv("NOTIVATE_PROVIDER")
	if provider == "" {
		provider = "openai"
	}
	chatModel, err := guide.NewChatModel(ctx, provider, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init synthesis model")
	}

	staging, err := upload.NewStaging(cfg.BasicConfig.StagingDir)
	if err != nil {
		log.Fatal().Err(err).Msg("init upload staging")
	}
	sweepInterval := time.Duration(cfg.BasicConfig.StagingSweepInterval) * time.Minute
	staging.StartSweeper(ctx, sweepInterval, upload.DefaultSweepMaxAge)

	accounting := usage.New(db, dbType)
	pipeline := transform.New(
		extractor,
		guide.New(chatModel),
		accounting,
		transform.Config{
			OCRTimeout:       time.Duration(cfg.BasicConfig.OCRTimeout) * time.Second,
			SynthesisTimeout: time.Duration(cfg.BasicConfig.SynthesisTimeout) * time.Second,
		},
	)

	verifier := auth.NewHTTPVerifier(cfg.Identity.BaseURL, cfg.Identity.ServiceKey)
	authService := auth.NewService(db, rdb, verifier)
	handlers := api.NewHandler(authService, pipeline, notes.New(db), accounting, staging)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":3001"
	}
	log.Info().Str("addr", addr).Str("provider", provider).Msg("server starting")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
