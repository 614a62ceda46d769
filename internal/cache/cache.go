// Package cache holds the short-lived, per-device state: wizard sessions, redirect
// snapshots and the ambient draft slots. All of it lives in Redis in production.
package cache

import (
	"context"
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

// SessionStore keeps one wizard session per (user, device).
type SessionStore interface {
	Get(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error)
	Put(ctx context.Context, session *models.WizardSession) error
}

// SnapshotStore holds redirect snapshots keyed by user and browsing session.
type SnapshotStore interface {
	Save(ctx context.Context, userID int64, tabID string, payload []byte, ttl time.Duration) error
	// Take returns the payload and deletes it atomically. A missing key yields (nil, nil).
	Take(ctx context.Context, userID int64, tabID string) ([]byte, error)
}

// SessionLocker serializes writes to one wizard session across every server process.
// Lock blocks until the lock is held or the wait runs out, in which case it returns
// models.ErrSessionBusy.
type SessionLocker interface {
	Lock(ctx context.Context, userID int64, deviceID string) (unlock func(), err error)
}

// DraftSlot names one optional key/value slot of the ambient draft cache.
type DraftSlot string

const (
	SlotCaption   DraftSlot = "caption"
	SlotMediaRef  DraftSlot = "media_ref"
	SlotPlatforms DraftSlot = "platforms"
	SlotEditDraft DraftSlot = "edit_draft"
)

// DraftCache is best-effort storage: callers treat every error as a miss.
type DraftCache interface {
	Get(ctx context.Context, userID int64, slot DraftSlot) ([]byte, error)
	Set(ctx context.Context, userID int64, slot DraftSlot, value []byte) error
	Delete(ctx context.Context, userID int64, slot DraftSlot) error
	SetLastPostURL(ctx context.Context, userID int64, platform, url string) error
	LastPostURL(ctx context.Context, userID int64, platform string) (string, error)
}
