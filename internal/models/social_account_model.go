package models

import (
	"time"
)

type PlatformConnection struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	Platform    string    `db:"platform" json:"platform"`
	Connected   bool      `db:"connected" json:"connected"`
	ConnectedAt time.Time `db:"connected_at" json:"connected_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
