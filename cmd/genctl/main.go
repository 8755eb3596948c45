package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/core"
	"github.com/wenjia-zhai/genbridge/internal/library"
	"github.com/wenjia-zhai/genbridge/internal/relocate"
	"github.com/wenjia-zhai/genbridge/internal/storage"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
	"github.com/wenjia-zhai/genbridge/internal/vendors/dashscope"
)

// genctl runs one generation end to end from the command line: submit,
// poll to a terminal state, relocate the result, record it in the library.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		vendor   = flag.String("vendor", constants.VendorDashScope, "vendor to submit to")
		kind     = flag.String("kind", "IMAGE", "IMAGE or VIDEO")
		model    = flag.String("model", "", "vendor model name (vendor default when empty)")
		prompt   = flag.String("prompt", "", "generation prompt (required)")
		imageURL = flag.String("image-url", "", "first-frame reference for image-to-video")
		count    = flag.Int("count", 1, "number of results to request")
		size     = flag.String("size", "", "output size, e.g. 1024*1024")
		user     = flag.String("user", "", "user id (random when empty)")
		timeout  = flag.Duration("timeout", 15*time.Minute, "overall deadline for the run")
	)
	flag.Parse()

	if *prompt == "" {
		logger.Error("usage: genctl -prompt <text> [-vendor dashscope] [-kind IMAGE|VIDEO]")
		os.Exit(2)
	}

	userID := uuid.New()
	if *user != "" {
		parsed, err := uuid.Parse(*user)
		if err != nil {
			logger.Error("invalid user id", "arg", *user, "error", err)
			os.Exit(2)
		}
		userID = parsed
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := common.WithTimeout(ctx, *timeout)
	defer cancel()

	repo, err := library.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open library", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("open object store", "error", err)
		os.Exit(1)
	}
	relocator := relocate.NewRelocator(store, cfg.Storage.MediaFetchTimeout, logger)

	adapters := map[string]vendors.Adapter{
		constants.VendorDashScope: dashscope.NewClient(dashscope.Config{
			Timeout: cfg.VendorOrch(constants.VendorDashScope).RequestTimeout,
		}, logger),
	}

	gen := core.NewGenerator(logger, cfg, adapters, relocator, repo)

	asset, err := gen.Generate(ctx, userID, *vendor, vendors.GenerationParams{
		Kind:     strings.ToUpper(*kind),
		Model:    *model,
		Prompt:   *prompt,
		ImageURL: *imageURL,
		Count:    *count,
		Size:     *size,
	})
	if err != nil {
		logger.Error("generation failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("asset %s (%s)\n  url: %s\n  durable: %v\n", asset.ID, asset.Kind, asset.URL, asset.Durable)
}
