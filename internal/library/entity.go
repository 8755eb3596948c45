package library

import (
	"time"

	"github.com/google/uuid"
)

// Asset is one relocated generation result in a user's library, used for
// data transfer between layers.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Kind        string    `json:"kind"` // IMAGE or VIDEO
	Vendor      string    `json:"vendor"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	JobID       string    `json:"job_id"` // vendor task id, for audit
	URL         string    `json:"url"`
	ObjectKey   string    `json:"object_key"` // empty when not durable
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	Durable     bool      `json:"durable"`
	CreatedAt   time.Time `json:"created_at"`
}

// PromptEntry records one prompt a user submitted, durable or not.
type PromptEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}
