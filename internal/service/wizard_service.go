package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

// WizardService drives one wizard session per (user, device). Writes to a session are
// serialized through the session locker, across processes; reads go straight to the
// session store so a client can poll progress while a batch is running.
type WizardService interface {
	Session(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error)
	Transition(ctx context.Context, userID int64, deviceID string, ev Event) (*models.WizardSession, error)
	UpdateDraft(ctx context.Context, userID int64, deviceID string, update transfer.DraftUpdate) (*models.WizardSession, error)
	Publish(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error)
	Retry(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error)
	ScheduleTime(ctx context.Context, userID int64, deviceID, displayTime string) (*models.WizardSession, error)
	Commit(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, *models.ScheduledPost, error)
	EditTime(ctx context.Context, userID int64, deviceID, postID, displayTime string) (*models.WizardSession, error)
	PublishNow(ctx context.Context, userID int64, deviceID, postID string) (*models.WizardSession, error)
	Suspend(ctx context.Context, userID int64, deviceID, tabID, platform, origin string) (*Suspension, error)
	Resume(ctx context.Context, userID int64, deviceID, tabID, returnURL string) (*models.WizardSession, *ResumeResult, error)
}

type wizardService struct {
	sessions cache.SessionStore
	locker   cache.SessionLocker
	drafts   cache.DraftCache
	publish  PublishService
	schedule ScheduleService
	redirect RedirectService
}

func NewWizardService(
	sessions cache.SessionStore,
	locker cache.SessionLocker,
	drafts cache.DraftCache,
	publish PublishService,
	schedule ScheduleService,
	redirect RedirectService) WizardService {
	return &wizardService{
		sessions: sessions,
		locker:   locker,
		drafts:   drafts,
		publish:  publish,
		schedule: schedule,
		redirect: redirect,
	}
}

func (s *wizardService) lock(ctx context.Context, userID int64, deviceID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, userID, deviceID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return unlock, nil
}

// load returns the stored session or a fresh one whose draft is hydrated from the
// ambient cache. A broken store entry is treated as absent.
func (s *wizardService) load(ctx context.Context, userID int64, deviceID string) *models.WizardSession {
	session, err := s.sessions.Get(ctx, userID, deviceID)
	if err != nil {
		slog.Info(err.Error())
	}
	if session != nil {
		session.Screen = models.ParseScreen(string(session.Screen))
		return session
	}
	session = models.NewWizardSession(userID, deviceID)
	s.hydrate(ctx, session)
	return session
}

func (s *wizardService) hydrate(ctx context.Context, session *models.WizardSession) {
	if s.drafts == nil {
		return
	}
	if raw, err := s.drafts.Get(ctx, session.UserID, cache.SlotCaption); err == nil && raw != nil {
		session.Draft.Caption = string(raw)
	}
	if raw, err := s.drafts.Get(ctx, session.UserID, cache.SlotMediaRef); err == nil && raw != nil {
		session.Draft.MediaRef = string(raw)
	}
	if raw, err := s.drafts.Get(ctx, session.UserID, cache.SlotPlatforms); err == nil && raw != nil {
		var platforms []string
		if json.Unmarshal(raw, &platforms) == nil {
			session.Draft.Platforms = platforms
		}
	}
}

func (s *wizardService) save(ctx context.Context, session *models.WizardSession) error {
	if err := s.sessions.Put(ctx, session); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *wizardService) Session(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	return s.load(ctx, userID, deviceID), nil
}

func (s *wizardService) apply(ctx context.Context, session *models.WizardSession, ev Event) (*models.WizardSession, error) {
	next, err := Reduce(*session, ev)
	if err != nil {
		return session, err
	}
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *wizardService) Transition(ctx context.Context, userID int64, deviceID string, ev Event) (*models.WizardSession, error) {
	switch ev.Type {
	case EventNavigate, EventBack:
	default:
		return nil, models.NewValidationError("type", "only navigate and back can be requested")
	}
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.apply(ctx, s.load(ctx, userID, deviceID), ev)
}

func (s *wizardService) UpdateDraft(ctx context.Context, userID int64, deviceID string, update transfer.DraftUpdate) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)

	if update.Caption != nil {
		session.Draft.Caption = *update.Caption
		s.setSlot(ctx, userID, cache.SlotCaption, []byte(*update.Caption))
	}
	if update.MediaRef != nil {
		session.Draft.MediaRef = *update.MediaRef
		s.setSlot(ctx, userID, cache.SlotMediaRef, []byte(*update.MediaRef))
	}
	if update.Platforms != nil {
		session.Draft.Platforms = uniquePlatforms(update.Platforms)
		if raw, err := json.Marshal(session.Draft.Platforms); err == nil {
			s.setSlot(ctx, userID, cache.SlotPlatforms, raw)
		}
	}
	if update.GeneratedCaption != nil {
		session.GeneratedCaption = *update.GeneratedCaption
	}
	if update.GeneratedMedia != nil {
		session.GeneratedMedia = update.GeneratedMedia
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *wizardService) setSlot(ctx context.Context, userID int64, slot cache.DraftSlot, value []byte) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Set(ctx, userID, slot, value); err != nil {
		slog.Info(err.Error())
	}
}

// progress stores every attempt change so polling readers see per-item status.
func (s *wizardService) progress(ctx context.Context, session *models.WizardSession) ProgressFunc {
	return func(batch *models.PublishBatch, _ models.PublishAttempt) {
		snapshot := *batch
		snapshot.Attempts = append([]models.PublishAttempt(nil), batch.Attempts...)
		session.LastBatch = &snapshot
		if err := s.sessions.Put(ctx, session); err != nil {
			slog.Info(err.Error())
		}
	}
}

func (s *wizardService) runBatch(ctx context.Context, session *models.WizardSession, run func(ProgressFunc) (*models.PublishBatch, error)) (*models.WizardSession, error) {
	ctx = context.WithoutCancel(ctx)
	batch, err := run(s.progress(ctx, session))
	if batch == nil {
		return nil, err
	}
	next, saveErr := s.apply(ctx, session, Event{Type: EventPublishCompleted, Batch: batch})
	if saveErr != nil {
		return nil, saveErr
	}
	// An aborted batch still lands on the triage screen; the error is reported too.
	return next, err
}

func (s *wizardService) Publish(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session, err := s.apply(ctx, s.load(ctx, userID, deviceID), Event{Type: EventNavigate, Target: string(models.ScreenPublishProgress)})
	if err != nil {
		return nil, err
	}
	session.LastBatch = nil

	content := models.Content{Caption: session.Draft.Caption, MediaRef: session.Draft.MediaRef, Kind: session.Kind}
	return s.runBatch(ctx, session, func(progress ProgressFunc) (*models.PublishBatch, error) {
		return s.publish.Publish(ctx, PublishRequest{
			UserID:    userID,
			Platforms: session.Draft.Platforms,
			Content:   content,
			Progress:  progress,
		})
	})
}

func (s *wizardService) Retry(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)
	last := session.LastBatch
	if last == nil {
		return nil, models.NewValidationError("batch", "no batch to retry")
	}
	if len(last.Platforms(models.AttemptFailed)) == 0 {
		return nil, models.NewValidationError("batch", "no failed platforms to retry")
	}

	session, err = s.apply(ctx, session, Event{Type: EventNavigate, Target: string(models.ScreenPublishProgress)})
	if err != nil {
		// The draft may have changed since the batch ran; the retry reuses the batch content.
		session = s.load(ctx, userID, deviceID)
		session.Screen = models.ScreenPublishProgress
	}
	session.LastBatch = nil
	return s.runBatch(ctx, session, func(progress ProgressFunc) (*models.PublishBatch, error) {
		return s.publish.RetryFailed(ctx, last, progress)
	})
}

func (s *wizardService) ScheduleTime(ctx context.Context, userID int64, deviceID, displayTime string) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)

	at, err := s.schedule.SetTime(ctx, userID, displayTime)
	if err != nil {
		return nil, err
	}
	session.Draft.ScheduledAt = &at
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *wizardService) Commit(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, *models.ScheduledPost, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)

	if err := guard(models.ScreenScheduleConfirm, session); err != nil {
		return nil, nil, err
	}
	if session.Draft.ScheduledAt == nil {
		return nil, nil, models.NewValidationError("scheduled_at", "pick a time first")
	}
	content := models.Content{Caption: session.Draft.Caption, MediaRef: session.Draft.MediaRef, Kind: session.Kind}
	post, err := s.schedule.Commit(ctx, userID, session.Draft.Platforms, content, *session.Draft.ScheduledAt)
	if err != nil {
		return nil, nil, err
	}

	next, err := s.apply(ctx, session, Event{Type: EventScheduleCommitted})
	if err != nil {
		return nil, post, err
	}
	return next, post, nil
}

func (s *wizardService) EditTime(ctx context.Context, userID int64, deviceID, postID, displayTime string) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)
	if postID == "" {
		postID = session.Draft.EditingPostID
	}

	res, err := s.schedule.EditTime(ctx, userID, postID, session.ReturnContext, displayTime)
	if err != nil {
		return nil, err
	}
	if kind, ok := KindForScreen(res.ReturnTo); ok {
		session.Kind = kind
	}
	session.Draft = res.Draft
	return s.apply(ctx, session, Event{Type: EventTimeEdited})
}

func (s *wizardService) PublishNow(ctx context.Context, userID int64, deviceID, postID string) (*models.WizardSession, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)
	session.Screen = models.ScreenPublishProgress
	session.LastBatch = nil

	return s.runBatch(ctx, session, func(progress ProgressFunc) (*models.PublishBatch, error) {
		return s.schedule.PublishNow(ctx, userID, postID, progress)
	})
}

func (s *wizardService) Suspend(ctx context.Context, userID int64, deviceID, tabID, platform, origin string) (*Suspension, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)
	return s.redirect.Suspend(ctx, tabID, session, platform, origin)
}

// Resume restores the session captured before the redirect. Without the redirect
// indicator nothing changes; with it but without a usable snapshot the session lands
// on the default screen.
func (s *wizardService) Resume(ctx context.Context, userID int64, deviceID, tabID, returnURL string) (*models.WizardSession, *ResumeResult, error) {
	unlock, err := s.lock(ctx, userID, deviceID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()
	session := s.load(ctx, userID, deviceID)

	if u, err := url.Parse(returnURL); err != nil || !IsRedirectReturn(u.Query()) {
		return session, &ResumeResult{CleanURL: returnURL}, nil
	}

	res, ok := s.redirect.Resume(ctx, tabID, userID, returnURL)
	ev := Event{Type: EventRedirectResumed}
	if ok {
		ev.Restore = res.Session
	}
	next, err := s.apply(ctx, session, ev)
	if err != nil {
		return nil, res, err
	}
	return next, res, nil
}
