package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type ConnectionRepository interface {
	Upsert(ctx context.Context, pc *models.PlatformConnection) error
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	Remove(ctx context.Context, userID int64, platform string) error
	RemoveAll(ctx context.Context, userID int64) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Upsert(ctx context.Context, pc *models.PlatformConnection) error {
	query := `
		INSERT INTO platform_connections (user_id, platform, connected, connected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, platform) DO UPDATE
		SET connected = EXCLUDED.connected,
			connected_at = EXCLUDED.connected_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, pc.UserID, pc.Platform, pc.Connected, pc.ConnectedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	query := `
		SELECT user_id, platform, connected, connected_at, updated_at
		FROM platform_connections
		WHERE user_id = $1 AND connected
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.PlatformConnection
	for rows.Next() {
		var pc models.PlatformConnection
		if err := rows.Scan(&pc.UserID, &pc.Platform, &pc.Connected, &pc.ConnectedAt, &pc.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, &pc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

func (r *connectionRepository) Remove(ctx context.Context, userID int64, platform string) error {
	query := `DELETE FROM platform_connections WHERE user_id = $1 AND platform = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, platform); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectionRepository) RemoveAll(ctx context.Context, userID int64) error {
	query := `DELETE FROM platform_connections WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectionRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM platform_connections WHERE connected ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return ids, nil
}
