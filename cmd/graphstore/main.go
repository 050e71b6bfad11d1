package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"graphstore/infrastructure/config"
	"graphstore/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger

	if cfg.SchemaSeedFile != "" {
		classes, err := config.LoadSchemaSeed(cfg.SchemaSeedFile)
		if err != nil {
			logger.Error("Failed to load schema seed", zap.Error(err))
			return
		}
		registered, err := container.Registry.SeedClasses(ctx, classes)
		if err != nil {
			logger.Error("Failed to apply schema seed",
				zap.Int("registered", registered),
				zap.Error(err),
			)
			return
		}
		logger.Info("Applied schema seed",
			zap.String("file", cfg.SchemaSeedFile),
			zap.Int("registered", registered),
			zap.Int("skipped", len(classes)-registered),
		)
	}

	logger.Info("Schema registry ready",
		zap.String("root", container.Registry.RootClassName()),
		zap.Strings("classes", container.Registry.ClassNames()),
	)

	stats := container.Store.Stats()
	logger.Info("Graph store ready",
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.StorageBackend),
		zap.Int("nodes", stats.TotalNodes),
		zap.Int("edges", stats.TotalEdges),
		zap.Int("schemas", stats.TotalSchemas),
	)

	<-ctx.Done()
	logger.Info("Shutting down graph store")
}
