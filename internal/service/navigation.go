package service

import (
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

type EventType string

const (
	EventNavigate          EventType = "navigate"
	EventBack              EventType = "back"
	EventPublishCompleted  EventType = "publish_completed"
	EventScheduleCommitted EventType = "schedule_committed"
	EventTimeEdited        EventType = "time_edited"
	EventRedirectResumed   EventType = "redirect_resumed"
)

// Event is the single input of the wizard reducer.
type Event struct {
	Type    EventType             `json:"type"`
	Target  string                `json:"target,omitempty"`
	Context models.ReturnContext  `json:"context,omitempty"`
	Batch   *models.PublishBatch  `json:"-"`
	Restore *models.WizardSession `json:"-"`
}

var imageScreens = map[models.Screen]struct{}{
	models.ScreenImageGenerator:  {},
	models.ScreenImagePreview:    {},
	models.ScreenEditPostImage:   {},
	models.ScreenPostDetailImage: {},
}

var captionScreens = map[models.Screen]struct{}{
	models.ScreenCaptionGenerator: {},
	models.ScreenCaptionPreview:   {},
	models.ScreenEditPostText:     {},
	models.ScreenPostDetailText:   {},
}

// parents resolves back-navigation for every screen except the time picker.
var parents = map[models.Screen]models.Screen{
	models.ScreenOnboarding:       models.ScreenDashboard,
	models.ScreenContentType:      models.ScreenDashboard,
	models.ScreenCaptionGenerator: models.ScreenContentType,
	models.ScreenCaptionPreview:   models.ScreenCaptionGenerator,
	models.ScreenImageGenerator:   models.ScreenContentType,
	models.ScreenImagePreview:     models.ScreenImageGenerator,
	models.ScreenConnectAccounts:  models.ScreenPlatformSelect,
	models.ScreenPublishProgress:  models.ScreenPlatformSelect,
	models.ScreenPublishSuccess:   models.ScreenDashboard,
	models.ScreenPublishResults:   models.ScreenPlatformSelect,
	models.ScreenScheduleConfirm:  models.ScreenCalendar,
	models.ScreenCalendar:         models.ScreenDashboard,
	models.ScreenPostDetailText:   models.ScreenCalendar,
	models.ScreenPostDetailImage:  models.ScreenCalendar,
	models.ScreenEditPostText:     models.ScreenPostDetailText,
	models.ScreenEditPostImage:    models.ScreenPostDetailImage,
	models.ScreenAdCampaign:       models.ScreenDashboard,
}

// KindForScreen derives the content kind from the screen family being entered.
// The second result is false for screens that leave the kind untouched.
func KindForScreen(s models.Screen) (models.ContentKind, bool) {
	if _, ok := imageScreens[s]; ok {
		return models.ContentImage, true
	}
	if _, ok := captionScreens[s]; ok {
		return models.ContentText, true
	}
	return "", false
}

// TimePickerBack resolves where the time picker returns to. Edit and detail contexts
// carry their own kind, so the kind argument only matters without a context.
func TimePickerBack(rc models.ReturnContext, kind models.ContentKind) models.Screen {
	switch rc {
	case models.ReturnEditImage:
		return models.ScreenEditPostImage
	case models.ReturnEditText:
		return models.ScreenEditPostText
	case models.ReturnDetailImage:
		return models.ScreenPostDetailImage
	case models.ReturnDetailText:
		return models.ScreenPostDetailText
	}
	if kind == models.ContentImage {
		return models.ScreenImagePreview
	}
	return models.ScreenCaptionPreview
}

// EditReturn is the edit screen that regains control after a time is picked for an
// existing post. It never resolves to a confirmation screen.
func EditReturn(rc models.ReturnContext, kind models.ContentKind) models.Screen {
	switch rc {
	case models.ReturnEditImage, models.ReturnDetailImage:
		return models.ScreenEditPostImage
	case models.ReturnEditText, models.ReturnDetailText:
		return models.ScreenEditPostText
	}
	if kind == models.ContentImage {
		return models.ScreenEditPostImage
	}
	return models.ScreenEditPostText
}

// NextScreen routes a finished batch. Partial batches go to the same triage screen as
// failed ones.
func NextScreen(batch *models.PublishBatch) models.Screen {
	if batch != nil && batch.Status == models.BatchSuccess {
		return models.ScreenPublishSuccess
	}
	return models.ScreenPublishResults
}

func backScreen(s *models.WizardSession) models.Screen {
	if s.Screen == models.ScreenScheduleTime {
		return TimePickerBack(s.ReturnContext, s.Kind)
	}
	if parent, ok := parents[s.Screen]; ok {
		return parent
	}
	return models.DefaultScreen
}

func guard(target models.Screen, s *models.WizardSession) error {
	switch target {
	case models.ScreenPublishProgress, models.ScreenScheduleConfirm:
		if len(s.Draft.Platforms) == 0 {
			return models.NewValidationError("platforms", "select at least one platform")
		}
		if s.Draft.Caption == "" && s.Draft.MediaRef == "" {
			return models.NewValidationError("content", "caption or media is required")
		}
	}
	return nil
}

func enter(s *models.WizardSession, target models.Screen, rc models.ReturnContext) {
	if kind, ok := KindForScreen(target); ok {
		s.Kind = kind
	}
	if target == models.ScreenScheduleTime {
		s.ReturnContext = rc
	} else if s.Screen == models.ScreenScheduleTime {
		s.ReturnContext = models.ReturnNone
	}
	s.Screen = target
}

// Reduce applies ev to a copy of session and returns the new state. Only validation
// guards produce an error, in which case the session is returned unchanged.
func Reduce(session models.WizardSession, ev Event) (models.WizardSession, error) {
	next := session
	switch ev.Type {
	case EventBack:
		enter(&next, backScreen(&session), models.ReturnNone)

	case EventPublishCompleted:
		next.LastBatch = ev.Batch
		enter(&next, NextScreen(ev.Batch), models.ReturnNone)

	case EventScheduleCommitted:
		next.Draft = models.Draft{}
		enter(&next, models.ScreenScheduleConfirm, models.ReturnNone)

	case EventTimeEdited:
		enter(&next, EditReturn(session.ReturnContext, session.Kind), models.ReturnNone)

	case EventRedirectResumed:
		if ev.Restore == nil {
			enter(&next, models.DefaultScreen, models.ReturnNone)
			break
		}
		r := ev.Restore
		next.Screen = models.ParseScreen(string(r.Screen))
		next.ReturnContext = r.ReturnContext
		next.Kind = r.Kind
		next.GeneratedCaption = r.GeneratedCaption
		next.GeneratedMedia = r.GeneratedMedia
		next.Draft = r.Draft

	default:
		target := models.ParseScreen(ev.Target)
		if err := guard(target, &session); err != nil {
			return session, err
		}
		enter(&next, target, ev.Context)
	}
	next.UpdatedAt = time.Now()
	return next, nil
}
