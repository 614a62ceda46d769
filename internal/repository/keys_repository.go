package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type ApiKeyRepository interface {
	// Authenticate resolves a key hash to its owner and records the use.
	Authenticate(ctx context.Context, keyHash string) (int64, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, key *models.ApiKey, keyHash string) error
	RemoveForUser(ctx context.Context, userID, keyID int64) (bool, error)
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Authenticate(ctx context.Context, keyHash string) (int64, bool, error) {
	var userID int64
	query := `UPDATE api_keys SET last_used_at = CURRENT_TIMESTAMP WHERE key_hash = $1 RETURNING user_id`
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, false, err
	}
	return userID, true, nil
}

func (r *apiKeyRepository) ListByUser(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	query := `SELECT id, user_id, prefix, label, created_at, last_used_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	keys := []*models.ApiKey{}
	for rows.Next() {
		var k models.ApiKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.UserID, &k.Prefix, &k.Label, &k.CreatedAt, &lastUsed); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (r *apiKeyRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.ApiKey, keyHash string) error {
	query := `INSERT INTO api_keys (user_id, key_hash, prefix, label)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, key.UserID, keyHash, key.Prefix, key.Label).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *apiKeyRepository) RemoveForUser(ctx context.Context, userID, keyID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
