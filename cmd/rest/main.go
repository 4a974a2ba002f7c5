package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exoplanet-classifier-be/internal/bootstrap"
	"exoplanet-classifier-be/internal/config"
	"exoplanet-classifier-be/internal/server"
	"exoplanet-classifier-be/internal/tracer"
	"exoplanet-classifier-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Otel)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 3. Initialize Database (prediction log only, optional)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Unable to connect to GORM DB, prediction log disabled: %v", err)
		} else {
			gormDB = db
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to bootstrap: %v", err)
	}
	defer container.Close()

	// 5. Default Vector Store
	bundle, err := container.EnsureDefault(ctx)
	if err != nil {
		log.Fatalf("[FATAL] Default vector store unavailable: %v", err)
	}
	log.Printf("[INFO] Default vector store ready with %d rows", bundle.Len())

	// 6. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()
	if container.BundleSyncService != nil {
		if err := container.BundleSyncService.Start(ctx); err != nil {
			log.Printf("[WARN] Bundle sync disabled: %v", err)
		}
	}
	if container.DatasetWatcher != nil {
		go func() {
			if err := container.DatasetWatcher.Run(ctx); err != nil {
				log.Printf("[WARN] Dataset watcher stopped: %v", err)
			}
		}()
	}

	// 7. Run Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	// let in-flight builds observe cancellation
	done := make(chan struct{})
	go func() {
		container.ConsumerService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("[WARN] Timed out waiting for build workers")
	}
}
