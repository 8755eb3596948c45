package vendors

import (
	"context"

	"github.com/wenjia-zhai/genbridge/internal/task"
)

// GenerationParams is the vendor-neutral description of one generation call.
// Adapters translate it into their own request payloads.
type GenerationParams struct {
	Kind     string         `json:"kind"` // IMAGE or VIDEO
	Model    string         `json:"model,omitempty"`
	Prompt   string         `json:"prompt"`
	ImageURL string         `json:"image_url,omitempty"` // first-frame reference for image-to-video
	Count    int            `json:"count,omitempty"`
	Size     string         `json:"size,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Adapter is the per-vendor strategy consumed by the orchestrator: submit a
// job, poll its raw status, and provide the vocabulary classifier. The
// poll/backoff/relocate composition never varies per vendor.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, params GenerationParams) (task.JobHandle, error)
	Poll(ctx context.Context, handle task.JobHandle) (task.RawStatus, error)
	Classifier() task.Classifier
}
