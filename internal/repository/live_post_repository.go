package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type LivePostRepository interface {
	Create(ctx context.Context, lp *models.LivePost) (int64, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.LivePost, error)
}

type livePostRepository struct {
	db *sql.DB
}

func NewLivePostRepository(db *sql.DB) LivePostRepository {
	return &livePostRepository{db: db}
}

func (r *livePostRepository) Create(ctx context.Context, lp *models.LivePost) (int64, error) {
	urls, err := json.Marshal(lp.PostURLs)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO live_posts (user_id, batch_id, caption, media_ref, post_urls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query, lp.UserID, lp.BatchID, lp.Caption, lp.MediaRef, urls).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *livePostRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.LivePost, error) {
	query := `
		SELECT id, user_id, batch_id, caption, media_ref, post_urls, created_at
		FROM live_posts WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.LivePost
	for rows.Next() {
		var lp models.LivePost
		var urls []byte
		if err := rows.Scan(&lp.ID, &lp.UserID, &lp.BatchID, &lp.Caption, &lp.MediaRef, &urls, &lp.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if err := json.Unmarshal(urls, &lp.PostURLs); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &lp)
	}
	return posts, rows.Err()
}
