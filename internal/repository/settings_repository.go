package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.Settings, bool, error) {
	query := `SELECT id, user_id, timezone, posting_time, created_at, updated_at FROM settings WHERE user_id = $1`

	var s models.Settings
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.ID, &s.UserID, &s.Timezone, &s.PostingTime, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO settings (user_id, timezone, posting_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
			posting_time = EXCLUDED.posting_time,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.Timezone, s.PostingTime); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
