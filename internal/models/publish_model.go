package models

import "time"

type AttemptStatus string

const (
	AttemptPending    AttemptStatus = "pending"
	AttemptPublishing AttemptStatus = "publishing"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptSuccess || s == AttemptFailed
}

type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindConnection ErrorKind = "connection"
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindTimeout    ErrorKind = "timeout"
)

// ManualAction is the fallback offered to the user for a failed attempt.
type ManualAction string

const (
	ManualNone        ManualAction = ""
	ManualCompose     ManualAction = "compose"
	ManualCopyCaption ManualAction = "copy_caption"
)

type PublishAttempt struct {
	Platform     string        `json:"platform"`
	Status       AttemptStatus `json:"status"`
	PostURL      string        `json:"post_url,omitempty"`
	ShareURL     string        `json:"share_url,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	ManualAction ManualAction  `json:"manual_action,omitempty"`
}

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

type PublishBatch struct {
	ID           string           `json:"id"`
	UserID       int64            `json:"user_id"`
	OriginPostID string           `json:"origin_post_id,omitempty"`
	Content      Content          `json:"content"`
	Attempts     []PublishAttempt `json:"attempts"`
	Status       BatchStatus      `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

// DeriveStatus computes the overall status from the attempt list: success iff every
// attempt succeeded, failed iff none did, partial otherwise.
func DeriveStatus(attempts []PublishAttempt) BatchStatus {
	succeeded := 0
	for _, a := range attempts {
		if a.Status == AttemptSuccess {
			succeeded++
		}
	}
	switch {
	case len(attempts) > 0 && succeeded == len(attempts):
		return BatchSuccess
	case succeeded == 0:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// Platforms returns the platforms whose attempts have the given status, in batch order.
func (b *PublishBatch) Platforms(status AttemptStatus) []string {
	var out []string
	for _, a := range b.Attempts {
		if a.Status == status {
			out = append(out, a.Platform)
		}
	}
	return out
}

// Content is a caption/media pair already resolved by the caller.
type Content struct {
	Caption  string      `json:"caption"`
	MediaRef string      `json:"media_ref,omitempty"`
	Kind     ContentKind `json:"kind"`
}
