package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/embedding"
	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/extractor"
	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/generation"
	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/repository/postgres"
	"github.com/nevinnnnnnn/ARTIKLE/internal/delivery/http/handler"
	"github.com/nevinnnnnnn/ARTIKLE/internal/delivery/http/middleware"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/auth"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/chat"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/document"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/ingest"
	"github.com/nevinnnnnnn/ARTIKLE/internal/vectorstore"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/config"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/database"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()
	appLog.Info("connected to database")

	// Embedding backend: first of the configured preference list that
	// constructs wins, pinned for the process lifetime.
	provider, err := embedding.Select(embeddingFactories(cfg), appLog)
	if err != nil {
		appLog.Fatal("no embedding backend available", "error", err)
	}
	cached := embedding.NewCached(provider, cfg.EmbeddingCacheCap)

	stores, err := vectorstore.NewManager(cfg.VectorStoreDir, cached, cfg.EmbedBatchSize, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize vector store dir", "error", err)
	}

	generator := generation.NewOpenAIGenerator(cfg.OpenAIKey, cfg.GenerationBaseURL, cfg.GenerationModel)

	userRepo := postgres.NewUserRepository(db)
	docRepo := postgres.NewDocumentRepository(db)
	chunkRepo := postgres.NewChunkRepository(db)
	chatRepo := postgres.NewChatRepository(db)

	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.TokenMultiplier)
	tasks := ingest.NewManager(docRepo, chunkRepo, stores, extractor.NewPDFExtractor(), chunker, cfg.ExtractionWorkers, appLog)

	authUsecase := auth.NewAuthUsecase(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	docUsecase, err := document.NewUsecase(docRepo, chunkRepo, stores, tasks, cfg.UploadDir, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize document usecase", "error", err)
	}
	orchestrator := chat.NewOrchestrator(stores, generator, chatRepo, cfg, appLog)

	authHandler := handler.NewAuthHandler(authUsecase)
	docHandler := handler.NewDocumentHandler(docUsecase)
	chatHandler := handler.NewChatHandler(orchestrator, chatRepo, docRepo, appLog)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})
	app.Use(fiberlogger.New())

	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	protected.Get("/auth/me", authHandler.Me)

	protected.Post("/documents/upload", docHandler.Upload)
	protected.Get("/documents", docHandler.List)
	protected.Get("/documents/:id", docHandler.GetByID)
	protected.Delete("/documents/:id", docHandler.Delete)
	protected.Post("/documents/:id/reprocess", docHandler.Reprocess)
	protected.Get("/documents/:id/store", docHandler.StoreStats)

	protected.Post("/chat/stream", chatHandler.Stream)
	protected.Get("/chat/history", chatHandler.History)
	protected.Delete("/chat/history", chatHandler.ClearHistory)

	go func() {
		appLog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			appLog.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", "error", err)
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		appLog.Error("ingestion shutdown incomplete", "error", err)
	}
	if err := stores.SaveAll(); err != nil {
		appLog.Error("failed to save vector stores", "error", err)
	}
	appLog.Info("shutdown complete")
}

func embeddingFactories(cfg *config.Config) []embedding.Factory {
	var factories []embedding.Factory
	for _, name := range cfg.EmbeddingBackends {
		switch name {
		case "openai":
			factories = append(factories, embedding.Factory{
				Name: "openai",
				Build: func() (embedding.Provider, error) {
					return embedding.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDim)
				},
			})
		case "lexical":
			factories = append(factories, embedding.Factory{
				Name: "lexical",
				Build: func() (embedding.Provider, error) {
					return embedding.NewLexicalProvider(cfg.EmbeddingDim)
				},
			})
		case "hash":
			factories = append(factories, embedding.Factory{
				Name: "hash",
				Build: func() (embedding.Provider, error) {
					return embedding.NewHashProvider(cfg.EmbeddingDim)
				},
			})
		}
	}
	return factories
}
