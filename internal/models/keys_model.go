package models

import "time"

// ApiKey authenticates server-to-server callers such as the scheduler frontend.
// Only a hash of the key is stored; Key is set once, in the response that creates it.
type ApiKey struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Prefix     string     `db:"prefix" json:"prefix"`
	Label      string     `db:"label" json:"label"`
	Key        string     `db:"-" json:"key,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}
