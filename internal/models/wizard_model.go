package models

import "time"

// Screen is a tag from the closed set of wizard screens.
type Screen string

const (
	ScreenDashboard        Screen = "dashboard"
	ScreenOnboarding       Screen = "onboarding"
	ScreenContentType      Screen = "content_type"
	ScreenCaptionGenerator Screen = "caption_generator"
	ScreenCaptionPreview   Screen = "caption_preview"
	ScreenImageGenerator   Screen = "image_generator"
	ScreenImagePreview     Screen = "image_preview"
	ScreenPlatformSelect   Screen = "platform_select"
	ScreenConnectAccounts  Screen = "connect_accounts"
	ScreenPublishProgress  Screen = "publish_progress"
	ScreenPublishSuccess   Screen = "publish_success"
	ScreenPublishResults   Screen = "publish_results"
	ScreenScheduleTime     Screen = "schedule_time"
	ScreenScheduleConfirm  Screen = "schedule_confirm"
	ScreenCalendar         Screen = "calendar"
	ScreenPostDetailText   Screen = "post_detail_text"
	ScreenPostDetailImage  Screen = "post_detail_image"
	ScreenEditPostText     Screen = "edit_post_text"
	ScreenEditPostImage    Screen = "edit_post_image"
	ScreenAdCampaign       Screen = "ad_campaign"
)

// DefaultScreen is where the wizard lands whenever the requested screen is unknown.
const DefaultScreen = ScreenDashboard

var screens = map[Screen]struct{}{
	ScreenDashboard: {}, ScreenOnboarding: {}, ScreenContentType: {},
	ScreenCaptionGenerator: {}, ScreenCaptionPreview: {},
	ScreenImageGenerator: {}, ScreenImagePreview: {},
	ScreenPlatformSelect: {}, ScreenConnectAccounts: {},
	ScreenPublishProgress: {}, ScreenPublishSuccess: {}, ScreenPublishResults: {},
	ScreenScheduleTime: {}, ScreenScheduleConfirm: {}, ScreenCalendar: {},
	ScreenPostDetailText: {}, ScreenPostDetailImage: {},
	ScreenEditPostText: {}, ScreenEditPostImage: {},
	ScreenAdCampaign: {},
}

// Valid reports whether s belongs to the closed screen set.
func (s Screen) Valid() bool {
	_, ok := screens[s]
	return ok
}

// ParseScreen maps raw to a known screen, falling back to DefaultScreen.
func ParseScreen(raw string) Screen {
	s := Screen(raw)
	if !s.Valid() {
		return DefaultScreen
	}
	return s
}

type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// ReturnContext records why the time picker was opened.
type ReturnContext string

const (
	ReturnNone        ReturnContext = ""
	ReturnEditImage   ReturnContext = "edit_image"
	ReturnEditText    ReturnContext = "edit_text"
	ReturnDetailImage ReturnContext = "detail_image"
	ReturnDetailText  ReturnContext = "detail_text"
)

// ParseReturnContext treats anything unrecognised as ReturnNone.
func ParseReturnContext(raw string) ReturnContext {
	switch rc := ReturnContext(raw); rc {
	case ReturnEditImage, ReturnEditText, ReturnDetailImage, ReturnDetailText:
		return rc
	default:
		return ReturnNone
	}
}

type Draft struct {
	Caption       string     `json:"caption"`
	MediaRef      string     `json:"media_ref,omitempty"`
	Platforms     []string   `json:"platforms"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	EditingPostID string     `json:"editing_post_id,omitempty"`
}

// Ready reports whether the draft has enough content to publish or schedule.
func (d Draft) Ready() bool {
	return len(d.Platforms) > 0 && (d.Caption != "" || d.MediaRef != "")
}

type WizardSession struct {
	UserID           int64         `json:"user_id"`
	DeviceID         string        `json:"device_id"`
	Screen           Screen        `json:"screen"`
	ReturnContext    ReturnContext `json:"return_context"`
	Kind             ContentKind   `json:"kind"`
	GeneratedCaption string        `json:"generated_caption,omitempty"`
	GeneratedMedia   []string      `json:"generated_media,omitempty"`
	Draft            Draft         `json:"draft"`
	LastBatch        *PublishBatch `json:"last_batch,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewWizardSession returns the session created at app start.
func NewWizardSession(userID int64, deviceID string) *WizardSession {
	return &WizardSession{
		UserID:    userID,
		DeviceID:  deviceID,
		Screen:    DefaultScreen,
		Kind:      ContentText,
		UpdatedAt: time.Now(),
	}
}

type PendingRedirectSnapshot struct {
	Token            string        `json:"token"`
	TabID            string        `json:"tab_id"`
	UserID           int64         `json:"user_id"`
	Platform         string        `json:"platform"`
	Screen           Screen        `json:"screen"`
	ReturnContext    ReturnContext `json:"return_context"`
	Kind             ContentKind   `json:"kind"`
	GeneratedCaption string        `json:"generated_caption,omitempty"`
	GeneratedMedia   []string      `json:"generated_media,omitempty"`
	Draft            Draft         `json:"draft"`
	CreatedAt        time.Time     `json:"created_at"`
	ExpiresAt        time.Time     `json:"expires_at"`
}
