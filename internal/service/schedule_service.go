package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
)

// DisplayTimeLayout is the local date-time the picker submits.
const DisplayTimeLayout = "2006-01-02T15:04"

// Scheduler delivers a scheduled post to the publish path at its time.
type Scheduler interface {
	Schedule(ctx context.Context, postID string, at time.Time) error
}

type EditResult struct {
	Draft    models.Draft  `json:"draft"`
	ReturnTo models.Screen `json:"return_to"`
}

type ScheduleService interface {
	SetTime(ctx context.Context, userID int64, displayTime string) (time.Time, error)
	Commit(ctx context.Context, userID int64, platforms []string, content models.Content, at time.Time) (*models.ScheduledPost, error)
	EditTime(ctx context.Context, userID int64, postID string, rc models.ReturnContext, displayTime string) (*EditResult, error)
	SaveEdit(ctx context.Context, userID int64) (*models.ScheduledPost, error)
	PublishNow(ctx context.Context, userID int64, postID string, progress ProgressFunc) (*models.PublishBatch, error)
	PublishDue(ctx context.Context, postID string, at time.Time) (*models.PublishBatch, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	Remove(ctx context.Context, userID int64, postID string) error
}

type scheduleService struct {
	sp        repository.ScheduledPostRepository
	settings  SettingsService
	scheduler Scheduler
	publisher PublishService
	drafts    cache.DraftCache
	now       func() time.Time
}

func NewScheduleService(
	sp repository.ScheduledPostRepository,
	settings SettingsService,
	scheduler Scheduler,
	publisher PublishService,
	drafts cache.DraftCache) ScheduleService {
	return &scheduleService{
		sp:        sp,
		settings:  settings,
		scheduler: scheduler,
		publisher: publisher,
		drafts:    drafts,
		now:       time.Now,
	}
}

// ParseDisplayTime reads a picker value in loc. RFC3339 values carry their own offset.
func ParseDisplayTime(displayTime string, loc *time.Location) (time.Time, error) {
	displayTime = strings.TrimSpace(displayTime)
	if displayTime == "" {
		return time.Time{}, models.NewValidationError("display_time", "is required")
	}
	if t, err := time.Parse(time.RFC3339, displayTime); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	t, err := time.ParseInLocation(DisplayTimeLayout, displayTime, loc)
	if err != nil {
		slog.Info(err.Error())
		return time.Time{}, models.NewValidationError("display_time", "expected YYYY-MM-DDTHH:MM")
	}
	return t.UTC().Truncate(time.Second), nil
}

func (s *scheduleService) SetTime(ctx context.Context, userID int64, displayTime string) (time.Time, error) {
	at, err := ParseDisplayTime(displayTime, s.settings.Location(ctx, userID))
	if err != nil {
		return time.Time{}, err
	}
	if !at.After(s.now()) {
		return time.Time{}, models.NewValidationError("display_time", "must be in the future")
	}
	return at, nil
}

func (s *scheduleService) Commit(ctx context.Context, userID int64, platforms []string, content models.Content, at time.Time) (*models.ScheduledPost, error) {
	platforms = uniquePlatforms(platforms)
	if len(platforms) == 0 {
		return nil, models.NewValidationError("platforms", "select at least one platform")
	}
	if content.Caption == "" && content.MediaRef == "" {
		return nil, models.NewValidationError("content", "caption or media is required")
	}
	if at.IsZero() || !at.After(s.now()) {
		return nil, models.NewValidationError("scheduled_at", "must be in the future")
	}
	if content.Kind == "" {
		content.Kind = models.ContentText
		if content.MediaRef != "" {
			content.Kind = models.ContentImage
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:          id,
		UserID:      userID,
		Platforms:   platforms,
		Caption:     content.Caption,
		MediaRef:    content.MediaRef,
		Kind:        content.Kind,
		ScheduledAt: at.UTC().Truncate(time.Second),
	}
	if err := s.sp.Create(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("error saving scheduled post: %w", err)
	}

	if err := s.scheduler.Schedule(ctx, post.ID, post.ScheduledAt); err != nil {
		slog.Info(err.Error())
		if rmErr := s.sp.Remove(ctx, post.ID); rmErr != nil {
			slog.Info(rmErr.Error())
		}
		return nil, fmt.Errorf("error scheduling post: %w", err)
	}

	s.clearDraft(ctx, userID)
	slog.Info("post scheduled", "post_id", post.ID, "user_id", userID, "at", post.ScheduledAt)
	return post, nil
}

func (s *scheduleService) clearDraft(ctx context.Context, userID int64) {
	if s.drafts == nil {
		return
	}
	for _, slot := range []cache.DraftSlot{cache.SlotCaption, cache.SlotMediaRef, cache.SlotPlatforms} {
		if err := s.drafts.Delete(ctx, userID, slot); err != nil {
			slog.Info(err.Error())
		}
	}
}

func (s *scheduleService) owned(ctx context.Context, userID int64, postID string) (*models.ScheduledPost, error) {
	if postID == "" {
		return nil, models.NewValidationError("post_id", "is required")
	}
	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("scheduled post %s: %w", postID, models.ErrNotFound)
	}
	return post, nil
}

// EditTime only touches the local edit draft. The picker hands control back to the
// edit screen; nothing is persisted until SaveEdit.
func (s *scheduleService) EditTime(ctx context.Context, userID int64, postID string, rc models.ReturnContext, displayTime string) (*EditResult, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	at, err := s.SetTime(ctx, userID, displayTime)
	if err != nil {
		return nil, err
	}

	draft := s.editDraft(ctx, userID)
	if draft == nil || draft.EditingPostID != post.ID {
		draft = &models.Draft{
			Caption:       post.Caption,
			MediaRef:      post.MediaRef,
			Platforms:     post.Platforms,
			EditingPostID: post.ID,
		}
	}
	draft.ScheduledAt = &at

	if s.drafts != nil {
		raw, err := json.Marshal(draft)
		if err == nil {
			err = s.drafts.Set(ctx, userID, cache.SlotEditDraft, raw)
		}
		if err != nil {
			slog.Info(err.Error())
		}
	}

	return &EditResult{Draft: *draft, ReturnTo: EditReturn(rc, post.Kind)}, nil
}

func (s *scheduleService) editDraft(ctx context.Context, userID int64) *models.Draft {
	if s.drafts == nil {
		return nil
	}
	raw, err := s.drafts.Get(ctx, userID, cache.SlotEditDraft)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var d models.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		slog.Info(err.Error())
		return nil
	}
	return &d
}

// SaveEdit persists the time held in the edit draft and re-schedules delivery.
func (s *scheduleService) SaveEdit(ctx context.Context, userID int64) (*models.ScheduledPost, error) {
	draft := s.editDraft(ctx, userID)
	if draft == nil || draft.EditingPostID == "" || draft.ScheduledAt == nil {
		return nil, models.NewValidationError("draft", "no pending time change")
	}
	post, err := s.owned(ctx, userID, draft.EditingPostID)
	if err != nil {
		return nil, err
	}
	if !draft.ScheduledAt.After(s.now()) {
		return nil, models.NewValidationError("scheduled_at", "must be in the future")
	}

	at := draft.ScheduledAt.UTC()
	if err := s.sp.UpdateTime(ctx, post.ID, at); err != nil {
		return nil, fmt.Errorf("error updating scheduled post: %w", err)
	}
	if err := s.scheduler.Schedule(ctx, post.ID, at); err != nil {
		return nil, fmt.Errorf("error scheduling post: %w", err)
	}
	if err := s.drafts.Delete(ctx, userID, cache.SlotEditDraft); err != nil {
		slog.Info(err.Error())
	}

	post.ScheduledAt = at
	return post, nil
}

func (s *scheduleService) PublishNow(ctx context.Context, userID int64, postID string, progress ProgressFunc) (*models.PublishBatch, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return s.publisher.Publish(ctx, PublishRequest{
		UserID:       post.UserID,
		Platforms:    post.Platforms,
		Content:      post.Content(),
		OriginPostID: post.ID,
		Progress:     progress,
	})
}

// PublishDue runs a post whose scheduled time has come. Deliveries for a post that was
// removed or moved to another time are stale and skipped.
func (s *scheduleService) PublishDue(ctx context.Context, postID string, at time.Time) (*models.PublishBatch, error) {
	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		slog.Info("scheduled post is gone, skipping", "post_id", postID)
		return nil, nil
	}
	if !post.ScheduledAt.Equal(at) {
		slog.Info("scheduled post was moved, skipping stale delivery", "post_id", postID, "at", at, "current", post.ScheduledAt)
		return nil, nil
	}
	return s.publisher.Publish(ctx, PublishRequest{
		UserID:       post.UserID,
		Platforms:    post.Platforms,
		Content:      post.Content(),
		OriginPostID: post.ID,
	})
}

func (s *scheduleService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.sp.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting scheduled posts: %w", err)
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}
	return posts, nil
}

func (s *scheduleService) Remove(ctx context.Context, userID int64, postID string) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}
	return s.sp.Remove(ctx, postID)
}
