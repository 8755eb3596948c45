// Package relocate moves generated media from time-limited vendor URLs into
// durable object storage.
package relocate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/storage"
	"github.com/wenjia-zhai/genbridge/internal/task"
)

// FailurePolicy decides what a failed relocation returns.
type FailurePolicy int

const (
	// FailureDegrade returns the original ephemeral URL flagged non-durable
	// so the result is never entirely lost to a storage hiccup.
	FailureDegrade FailurePolicy = iota
	// FailureStrict surfaces the relocation error to the caller.
	FailureStrict
)

// Relocator downloads a vendor result and re-uploads it under a
// collision-resistant key. Media downloads get their own generous timeout;
// the short control-plane client is not suitable for multi-hundred-MB video.
type Relocator struct {
	store   storage.ObjectStore
	client  *http.Client
	policy  FailurePolicy
	logger  *slog.Logger
	now     func() time.Time
	newUUID func() uuid.UUID
}

type Option func(*Relocator)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(r *Relocator) { r.policy = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Relocator) {
		if c != nil {
			r.client = c
		}
	}
}

func NewRelocator(store storage.ObjectStore, fetchTimeout time.Duration, logger *slog.Logger, opts ...Option) *Relocator {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relocator{
		store:   store,
		client:  &http.Client{Timeout: fetchTimeout},
		policy:  FailureDegrade,
		logger:  logger,
		now:     time.Now,
		newUUID: uuid.New,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Relocate fetches raw's ephemeral URL and uploads the bytes under a fresh
// key in category. Relocating the same result twice produces two distinct
// copies; each relocation corresponds to one user-visible generation event.
//
// Under FailureDegrade a fetch or upload error does not propagate: the
// original ephemeral URL comes back with Durable=false and a logged warning.
func (r *Relocator) Relocate(ctx context.Context, raw *task.RawResult, category constants.Category) (*task.RelocatedAsset, error) {
	if raw == nil || raw.URL == "" {
		return nil, fmt.Errorf("relocate: no source URL")
	}

	body, contentType, err := r.fetch(ctx, raw.URL)
	if err != nil {
		return r.degrade(raw, "fetch", err)
	}

	key := r.objectKey(category, raw.Filename, contentType)
	url, err := r.store.Upload(ctx, storage.UploadInput{
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
	})
	if err != nil {
		return r.degrade(raw, "upload", err)
	}

	r.logger.Info("relocate.done",
		"key", key,
		"size_bytes", len(body),
		"content_type", contentType,
	)
	return &task.RelocatedAsset{
		URL:         url,
		ObjectKey:   key,
		SizeBytes:   int64(len(body)),
		ContentType: contentType,
		Durable:     true,
		Source:      raw,
	}, nil
}

func (r *Relocator) fetch(ctx context.Context, srcURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("fetch %q: status %d", srcURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if detected := http.DetectContentType(body); detected != "" {
			contentType = detected
		}
	}
	return body, contentType, nil
}

func (r *Relocator) degrade(raw *task.RawResult, stage string, cause error) (*task.RelocatedAsset, error) {
	if r.policy == FailureStrict {
		return nil, fmt.Errorf("relocate %s: %w", stage, cause)
	}
	r.logger.Warn("relocate.degraded",
		"stage", stage,
		"source_url", truncate(raw.URL, 100),
		"error", cause,
	)
	return &task.RelocatedAsset{
		URL:     raw.URL,
		Durable: false,
		Source:  raw,
	}, nil
}

// objectKey builds category/YYYY/MM/DD/<uuid8>_<name><ext>. The uuid suffix
// keeps concurrent relocations from colliding.
func (r *Relocator) objectKey(category constants.Category, filename, contentType string) string {
	now := r.now().UTC()
	unique := strings.ReplaceAll(r.newUUID().String(), "-", "")[:8]

	name := filename
	if name == "" {
		name = "asset" + extForContentType(contentType)
	}
	name = path.Base(strings.TrimSpace(name))

	return fmt.Sprintf("%s/%s/%s_%s", category, now.Format("2006/01/02"), unique, name)
}

func extForContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "video/mp4"):
		return ".mp4"
	case strings.HasPrefix(contentType, "video/webm"):
		return ".webm"
	default:
		return ".bin"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
