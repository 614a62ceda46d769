package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type NotificationRepository interface {
	// ListRecent returns at most limit notifications, newest first.
	ListRecent(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	Create(ctx context.Context, n *models.Notification) (int64, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) (int64, error) {
	query := `INSERT INTO notifications (user_id, message) VALUES ($1, $2) RETURNING id`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, n.UserID, n.Message).Scan(&id); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *notificationRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, message, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}
