package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS generation_assets (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	kind         TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	model        TEXT NOT NULL,
	prompt       TEXT NOT NULL,
	job_id       TEXT NOT NULL,
	url          TEXT NOT NULL,
	object_key   TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	durable      INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_user_created ON generation_assets (user_id, created_at);

CREATE TABLE IF NOT EXISTS prompt_history (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompts_user_created ON prompt_history (user_id, created_at);
`

// SQLiteRepository implements Repository on an embedded sqlite file. It is
// the default backend when no Postgres DSN is configured.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and if needed creates) the sqlite database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = strings.TrimPrefix(path, "sqlite://")
	logger.Info("opening sqlite database", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, asset *Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_assets
			(id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, asset.ID.String(), asset.UserID.String(), asset.Kind, asset.Vendor, asset.Model, asset.Prompt, asset.JobID,
		asset.URL, asset.ObjectKey, asset.SizeBytes, asset.ContentType, asset.Durable, asset.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create asset", "user_id", asset.UserID, "error", err)
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at
		  FROM generation_assets
		 WHERE id = ?
	`, id.String())
	a, err := scanSQLiteAsset(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit int) ([]Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at
		  FROM generation_assets
		 WHERE user_id = ?`
	args := []any{userID.String()}
	if from != nil {
		query += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND created_at <= ?"
		args = append(args, *to)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanSQLiteAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM generation_assets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AddPrompt(ctx context.Context, entry *PromptEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompt_history (id, user_id, kind, prompt, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID.String(), entry.UserID.String(), entry.Kind, entry.Prompt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prompt entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPrompts(ctx context.Context, userID uuid.UUID, limit int) ([]PromptEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, prompt, created_at
		  FROM prompt_history
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?
	`, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var out []PromptEntry
	for rows.Next() {
		var e PromptEntry
		var id, uid string
		if err := rows.Scan(&id, &uid, &e.Kind, &e.Prompt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse prompt id: %w", err)
		}
		if e.UserID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("parse prompt user id: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() {
	r.logger.Info("closing sqlite database")
	r.db.Close()
}

// scanSQLiteAsset decodes one asset row; uuids are stored as text.
func scanSQLiteAsset(scan func(dest ...any) error) (*Asset, error) {
	var a Asset
	var id, uid string
	if err := scan(&id, &uid, &a.Kind, &a.Vendor, &a.Model, &a.Prompt, &a.JobID,
		&a.URL, &a.ObjectKey, &a.SizeBytes, &a.ContentType, &a.Durable, &a.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse asset id: %w", err)
	}
	if a.UserID, err = uuid.Parse(uid); err != nil {
		return nil, fmt.Errorf("parse asset user id: %w", err)
	}
	return &a, nil
}

var _ Repository = (*SQLiteRepository)(nil)
