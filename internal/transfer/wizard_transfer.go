package transfer

import (
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type TransitionRequest struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Context string `json:"context"`
}

type DraftUpdate struct {
	Caption          *string  `json:"caption"`
	MediaRef         *string  `json:"media_ref"`
	Platforms        []string `json:"platforms"`
	GeneratedCaption *string  `json:"generated_caption"`
	GeneratedMedia   []string `json:"generated_media"`
}

type PublishCreation struct {
	Platforms []string `json:"platforms"`
	Caption   string   `json:"caption"`
	MediaRef  string   `json:"media_ref"`
	Kind      string   `json:"kind"`
}

type ScheduleTimeRequest struct {
	DisplayTime string `json:"display_time"`
}

type ScheduleCommit struct {
	Platforms   []string `json:"platforms"`
	Caption     string   `json:"caption"`
	MediaRef    string   `json:"media_ref"`
	Kind        string   `json:"kind"`
	DisplayTime string   `json:"display_time"`
}

type EditTimeRequest struct {
	PostID      string `json:"post_id"`
	DisplayTime string `json:"display_time"`
}

type SuspendRequest struct {
	Platform string `json:"platform"`
	Origin   string `json:"origin"`
}

type SettingsUpdate struct {
	Timezone    string `json:"timezone"`
	PostingTime string `json:"posting_time"`
}
