package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error)
	UpdateTime(ctx context.Context, id string, scheduledAt time.Time) error
	Remove(ctx context.Context, id string) error
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, user_id, platforms, caption, media_ref, kind, scheduled_at, created_at, updated_at`

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (id, user_id, platforms, caption, media_ref, kind, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	args := []interface{}{post.ID, post.UserID, pq.Array(post.Platforms), post.Caption, post.MediaRef, post.Kind, post.ScheduledAt}

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, args...)
	} else {
		row = r.db.QueryRowContext(ctx, query, args...)
	}
	if err := row.Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduledPost(s scanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := s.Scan(&post.ID, &post.UserID, pq.Array(&post.Platforms), &post.Caption, &post.MediaRef,
		&post.Kind, &post.ScheduledAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *scheduledPostRepository) CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error) {
	query := "SELECT 1 FROM scheduled_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *scheduledPostRepository) UpdateTime(ctx context.Context, id string, scheduledAt time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET scheduled_at = $1,
			updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, scheduledAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
