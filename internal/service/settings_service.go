package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
)

const (
	defaultTimezone    = "UTC"
	defaultPostingTime = "09:00"
	postingTimeLayout  = "15:04"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, timezone, postingTime string) error
	// Location is the user's timezone. Unknown or unreadable settings resolve to UTC.
	Location(ctx context.Context, userID int64) *time.Location
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !isExist {
		return &models.Settings{UserID: userID, Timezone: defaultTimezone, PostingTime: defaultPostingTime}, nil
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, timezone, postingTime string) error {
	if timezone == "" {
		timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		slog.Info(err.Error())
		return models.NewValidationError("timezone", "unknown timezone")
	}

	if postingTime == "" {
		postingTime = defaultPostingTime
	}
	if _, err := time.Parse(postingTimeLayout, postingTime); err != nil {
		slog.Info(err.Error())
		return models.NewValidationError("posting_time", "expected HH:MM")
	}

	return s.sr.Upsert(ctx, &models.Settings{
		UserID:      userID,
		Timezone:    timezone,
		PostingTime: postingTime,
	})
}

func (s *settingsService) Location(ctx context.Context, userID int64) *time.Location {
	settings, err := s.GetSettingsInfo(ctx, userID)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		slog.Info(err.Error())
		return time.UTC
	}
	return loc
}
