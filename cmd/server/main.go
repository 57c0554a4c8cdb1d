package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burnbox/backend/internal/config"
	"github.com/burnbox/backend/internal/crypto"
	"github.com/burnbox/backend/internal/database"
	"github.com/burnbox/backend/internal/handlers"
	"github.com/burnbox/backend/internal/middleware"
	"github.com/burnbox/backend/internal/repository"
	"github.com/burnbox/backend/internal/services"
	"github.com/burnbox/backend/internal/storage"
	"github.com/burnbox/backend/internal/validation"
	"github.com/burnbox/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("no .env file found, relying on process environment")
	}

	logger.Init()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	key, err := cfg.Security.Key()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	codec, err := crypto.NewCodec(key)
	if err != nil {
		log.Fatalf("encryption setup failed: %v", err)
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	blobStore, err := newBlobStore(cfg.Storage)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	auditService := services.NewAuditService(db, blobStore, cfg.Audit.QueueSize)
	auditService.StartExporter(cfg.Audit.ExportInterval)

	transferService := services.NewTransferService(
		repository.NewTransferRepository(db),
		blobStore,
		codec,
		cfg.Upload.TokenTTL,
	)

	policy := validation.UploadPolicy{
		MaxSize:      cfg.Upload.MaxFileSize,
		AllowedMimes: cfg.Upload.AllowedMimes,
	}

	transfersHandler := handlers.NewTransfersHandler(transferService, auditService, policy, cfg.Server.PublicURL)
	adminHandler := handlers.NewAdminHandler(db)

	app := fiber.New(fiber.Config{
		// Headroom over the payload ceiling for multipart framing.
		BodyLimit: int(cfg.Upload.MaxFileSize) + 10*1024*1024,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(""))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", handlers.GetVersion)
	api.Post("/upload", transfersHandler.Upload)
	api.Get("/download/:token", transfersHandler.Download)
	api.Get("/files/:token", transfersHandler.Describe)

	admin := api.Group("/admin")
	admin.Get("/transfers", adminHandler.ListTransfers)
	admin.Get("/audit-events", adminHandler.ListAuditEvents)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":          cfg.Server.Port,
		"address":       listenAddr,
		"storage":       cfg.Storage.Backend,
		"token_ttl":     cfg.Upload.TokenTTL.String(),
		"max_file_size": cfg.Upload.MaxFileSize,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

func newBlobStore(cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "s3":
		client, err := storage.NewS3Client(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := storage.NewMinIOClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		return client, nil
	}
}
