// cmd/seed_products/main.go
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"sneakhead/internal/infra/config"
	"sneakhead/internal/platform/di"
	"sneakhead/internal/platform/logger"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the yaml config file")
	catalogFile := flag.String("catalog", "catalog.yaml", "products to seed")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}
	zl, syncLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger.New: %v", err)
	}
	defer syncLog()

	items, err := loadCatalog(*catalogFile)
	if err != nil {
		log.Fatalf("loadCatalog: %v", err)
	}

	cont, err := di.NewContainer(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("di.NewContainer: %v", err)
	}
	defer cont.Close()

	added, skipped, err := seed(ctx, cont.Products, items, zl.Named("seed"))
	if err != nil {
		zl.Error("[seed] stopped", zap.Error(err), zap.Int("added", added))
		return
	}
	zl.Info("[seed] products seeded", zap.Int("added", added), zap.Int("skipped", skipped))
}
