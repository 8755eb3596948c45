package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/library"
	"github.com/wenjia-zhai/genbridge/internal/storage"
)

// dbhealth probes the library database and, when a bucket is configured,
// the object store.
func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := library.Open(ctx, cfg.Database, nil)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer repo.Close()

	if err := repo.Health(ctx); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Println("DB health: OK")

	if cfg.Storage.Bucket == "" {
		log.Println("storage health: SKIPPED (no STORAGE_BUCKET configured)")
		return
	}
	store, err := storage.NewS3Store(ctx, cfg.Storage, nil)
	if err != nil {
		log.Fatalf("opening object store: %v", err)
	}
	if err := store.Health(ctx); err != nil {
		log.Fatalf("storage health: FAIL (%v)", err)
	}
	log.Println("storage health: OK")
}
