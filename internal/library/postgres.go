package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool from the database config.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "genbridge"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &PostgresRepository{pool: pool, logger: logger}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, asset *Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO generation_assets
			(id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, asset.ID, asset.UserID, asset.Kind, asset.Vendor, asset.Model, asset.Prompt, asset.JobID,
		asset.URL, asset.ObjectKey, asset.SizeBytes, asset.ContentType, asset.Durable, asset.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create asset", "user_id", asset.UserID, "error", err)
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at
		  FROM generation_assets
		 WHERE id = $1
	`, id)

	var a Asset
	err := row.Scan(&a.ID, &a.UserID, &a.Kind, &a.Vendor, &a.Model, &a.Prompt, &a.JobID,
		&a.URL, &a.ObjectKey, &a.SizeBytes, &a.ContentType, &a.Durable, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit int) ([]Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, kind, vendor, model, prompt, job_id, url, object_key, size_bytes, content_type, durable, created_at
		  FROM generation_assets
		 WHERE user_id = $1`
	args := []any{userID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list assets", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Vendor, &a.Model, &a.Prompt, &a.JobID,
			&a.URL, &a.ObjectKey, &a.SizeBytes, &a.ContentType, &a.Durable, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generation_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddPrompt(ctx context.Context, entry *PromptEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prompt_history (id, user_id, kind, prompt, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.UserID, entry.Kind, entry.Prompt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prompt entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListPrompts(ctx context.Context, userID uuid.UUID, limit int) ([]PromptEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, prompt, created_at
		  FROM prompt_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var out []PromptEntry
	for rows.Next() {
		var e PromptEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Prompt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	r.logger.Info("closing database connections")
	r.pool.Close()
}

var _ Repository = (*PostgresRepository)(nil)
