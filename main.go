package main

import (
	"context"
	"log"
	"os"
	"time"

	"pathsetu/internal/api"
	"pathsetu/internal/config"
	"pathsetu/internal/diagram"
	"pathsetu/internal/history"
	"pathsetu/internal/ingest"
	"pathsetu/internal/persona"
	"pathsetu/internal/pipeline"
	"pathsetu/internal/prompt"
	"pathsetu/internal/redis"
	"pathsetu/internal/render"
	"pathsetu/internal/service/ai"
	"pathsetu/internal/service/search"
	"pathsetu/internal/speech"
	"pathsetu/internal/storage"
	"pathsetu/internal/telegram"
	"pathsetu/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("PATHSETU_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("PATHSETU_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if !cfg.Redis.Disabled {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	}

	store := history.NewStore(db, rdb, persona.DefaultMode)

	ctx := context.Background()
	engine, err := ai.NewEngine(cfg)
	if err != nil {
		log.Fatalf("init model candidates: %v", err)
	}
	multimodal, err := ai.NewMultimodal(ctx, cfg.Speech.TranscribeAPIKey, cfg.Speech.TranscribeModel)
	if err != nil {
		log.Fatalf("init multimodal client: %v", err)
	}
	documents, err := ingest.NewFileDocumentParser(ctx)
	if err != nil {
		log.Fatalf("init document parser: %v", err)
	}

	turns := pipeline.New(pipeline.Config{
		Normalizer: ingest.NewNormalizer(multimodal, documents),
		Assembler:  prompt.NewAssembler(cfg.BasicConfig.HistoryWindow),
		Engine:     engine,
		Vision:     multimodal,
		Search:     search.NewService(cfg, search.KeywordTrigger(search.DefaultKeywords...)),
		Extractor:  diagram.NewExtractor(diagram.NewRenderer(cfg.Diagram.RenderBaseURL)),
		Renderer:   render.NewRenderer(speech.NewHTTPSynthesizer(cfg.Speech.TTSBaseURL)),
		Store:      store,
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})

	bot := telegram.NewClient(cfg.Telegram.BaseURL, cfg.Telegram.Token)
	handlers := api.NewHandler(turns, bot, store, dispatcher)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
