package library

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetRepository persists relocated generation results per user.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit int) ([]Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PromptRepository persists prompt history per user.
type PromptRepository interface {
	AddPrompt(ctx context.Context, entry *PromptEntry) error
	ListPrompts(ctx context.Context, userID uuid.UUID, limit int) ([]PromptEntry, error)
}

// Repository bundles both stores; the two implementations (Postgres and
// SQLite) satisfy it.
type Repository interface {
	AssetRepository
	PromptRepository
	Health(ctx context.Context) error
	Close()
}
