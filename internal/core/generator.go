package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/library"
	"github.com/wenjia-zhai/genbridge/internal/relocate"
	"github.com/wenjia-zhai/genbridge/internal/task"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
)

// Generator runs one generation end to end: validate the request, submit to
// the vendor, wait for a terminal state, relocate the result, and record the
// asset in the user's library.
type Generator struct {
	logger    *slog.Logger
	cfg       *common.Config
	adapters  map[string]vendors.Adapter
	relocator *relocate.Relocator
	repo      library.Repository
	orch      *task.Orchestrator
}

func NewGenerator(
	logger *slog.Logger,
	cfg *common.Config,
	adapters map[string]vendors.Adapter,
	relocator *relocate.Relocator,
	repo library.Repository,
) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		logger:    logger,
		cfg:       cfg,
		adapters:  adapters,
		relocator: relocator,
		repo:      repo,
		orch:      task.NewOrchestrator(logger),
	}
}

// Generate produces one asset for the user. Vendor failures surface as
// TaskFailedError, exhausted polling as TaskTimeoutError; in both cases no
// asset row is written.
func (g *Generator) Generate(ctx context.Context, userID uuid.UUID, vendor string, params vendors.GenerationParams) (*library.Asset, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	adapter, ok := g.adapters[vendor]
	if !ok {
		return nil, &common.ValidationError{Field: "vendor", Message: fmt.Sprintf("unknown vendor %q", vendor)}
	}

	category, _ := constants.Canonicalize(params.Kind)
	orchCfg := task.ConfigFrom(g.cfg.VendorOrch(vendor))

	// One request id spans submit, every poll and the relocation.
	ctx = common.WithRequestID(ctx, uuid.NewString())
	ctx = common.WithUserID(ctx, userID.String())

	g.logger.Info("generate.start",
		"req_id", common.RequestIDFromContext(ctx),
		"user_id", userID,
		"vendor", vendor,
		"kind", params.Kind,
		"model", params.Model,
	)

	if err := g.repo.AddPrompt(ctx, &library.PromptEntry{
		UserID: userID,
		Kind:   params.Kind,
		Prompt: params.Prompt,
	}); err != nil {
		// History is best effort; the generation itself still runs.
		g.logger.Warn("generate.prompt_history_failed", "user_id", userID, "err", err)
	}

	var handle task.JobHandle
	submit := func(ctx context.Context) (task.JobHandle, error) {
		h, err := adapter.Submit(ctx, params)
		if err == nil {
			handle = h
		}
		return h, err
	}
	relocateFn := func(ctx context.Context, raw *task.RawResult) (*task.RelocatedAsset, error) {
		return g.relocator.Relocate(ctx, raw, category)
	}

	result, err := g.orch.Run(ctx, orchCfg, submit, adapter.Poll, adapter.Classifier(), relocateFn)
	if err != nil {
		return nil, err
	}

	asset := &library.Asset{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        params.Kind,
		Vendor:      vendor,
		Model:       params.Model,
		Prompt:      params.Prompt,
		JobID:       handle.ID,
		URL:         result.URL,
		ObjectKey:   result.ObjectKey,
		SizeBytes:   result.SizeBytes,
		ContentType: result.ContentType,
		Durable:     result.Durable,
		CreatedAt:   time.Now().UTC(),
	}
	if err := g.repo.Create(ctx, asset); err != nil {
		return nil, common.NewAppError("DATABASE", "failed to record asset", err)
	}

	g.logger.Info("generate.done",
		"user_id", userID,
		"vendor", vendor,
		"asset_id", asset.ID,
		"durable", asset.Durable,
	)
	return asset, nil
}
