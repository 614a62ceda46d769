package models

import "time"

type ScheduledPost struct {
	ID          string      `db:"id" json:"id"`
	UserID      int64       `db:"user_id" json:"user_id"`
	Platforms   []string    `db:"platforms" json:"platforms"`
	Caption     string      `db:"caption" json:"caption"`
	MediaRef    string      `db:"media_ref" json:"media_ref,omitempty"`
	Kind        ContentKind `db:"kind" json:"kind"`
	ScheduledAt time.Time   `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Content returns the post's caption/media pair.
func (p *ScheduledPost) Content() Content {
	return Content{Caption: p.Caption, MediaRef: p.MediaRef, Kind: p.Kind}
}

// LivePost is the denormalized record of a batch that reached at least one platform.
type LivePost struct {
	ID        int64             `db:"id" json:"id"`
	UserID    int64             `db:"user_id" json:"user_id"`
	BatchID   string            `db:"batch_id" json:"batch_id"`
	Caption   string            `db:"caption" json:"caption"`
	MediaRef  string            `db:"media_ref" json:"media_ref,omitempty"`
	PostURLs  map[string]string `db:"post_urls" json:"post_urls"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
