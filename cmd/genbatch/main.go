package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/async"
	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/core"
	"github.com/wenjia-zhai/genbridge/internal/export"
	"github.com/wenjia-zhai/genbridge/internal/library"
	"github.com/wenjia-zhai/genbridge/internal/relocate"
	"github.com/wenjia-zhai/genbridge/internal/storage"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
	"github.com/wenjia-zhai/genbridge/internal/vendors/dashscope"
)

// batchJob is one line of the JSONL jobs file.
type batchJob struct {
	User   string                   `json:"user"`
	Vendor string                   `json:"vendor"`
	Params vendors.GenerationParams `json:"params"`
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		jobsPath = flag.String("jobs", "", "JSONL file of generation jobs (required)")
		workers  = flag.Int("workers", 4, "concurrent orchestrations")
		out      = flag.String("out", "", "write a history XLSX for the batch user when set")
	)
	flag.Parse()

	if *jobsPath == "" {
		printError("Error: --jobs is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	repo, err := library.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open library", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open object store", "error", err)
		os.Exit(1)
	}
	relocator := relocate.NewRelocator(store, cfg.Storage.MediaFetchTimeout, logger)

	adapters := map[string]vendors.Adapter{
		constants.VendorDashScope: dashscope.NewClient(dashscope.Config{
			Timeout: cfg.VendorOrch(constants.VendorDashScope).RequestTimeout,
		}, logger),
	}
	gen := core.NewGenerator(logger, cfg, adapters, relocator, repo)

	queue := async.NewGeneratorQueue(gen, logger, async.WithWorkers(*workers))

	f, err := os.Open(*jobsPath)
	if err != nil {
		logger.Error("failed to open jobs file", "path", *jobsPath, "error", err)
		os.Exit(1)
	}

	var enqueued int
	var lastUser uuid.UUID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var bj batchJob
		if err := json.Unmarshal(line, &bj); err != nil {
			logger.Warn("skipping malformed job line", "error", err)
			continue
		}
		userID, err := uuid.Parse(bj.User)
		if err != nil {
			logger.Warn("skipping job with invalid user id", "user", bj.User)
			continue
		}
		if bj.Vendor == "" {
			bj.Vendor = constants.VendorDashScope
		}
		if !constants.IsKnownVendor(bj.Vendor) {
			logger.Warn("skipping job for unknown vendor", "user", bj.User, "vendor", bj.Vendor)
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{UserID: userID, Vendor: bj.Vendor, Params: bj.Params}); err != nil {
			logger.Warn("enqueue failed", "user", bj.User, "error", err)
			continue
		}
		lastUser = userID
		enqueued++
	}
	f.Close()
	if err := scanner.Err(); err != nil {
		logger.Error("reading jobs file", "error", err)
	}
	logger.Info("batch enqueued", "jobs", enqueued)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)

	if *out != "" && lastUser != uuid.Nil {
		svc := export.NewService(repo, logger)
		data, err := svc.ExportHistoryXLSX(ctx, lastUser, nil, nil)
		if err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			logger.Error("failed to write export", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("history exported", "path", *out)
	}
}
