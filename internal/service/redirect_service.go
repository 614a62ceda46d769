package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/metrics"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/pkg/utils"
)

const (
	QueryConnected = "connected"
	QuerySuccess   = "success"
)

var platformPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

type Suspension struct {
	Token       string    `json:"token"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ResumeResult struct {
	Platform  string `json:"platform"`
	Connected bool   `json:"connected"`
	// CleanURL is the return address with the redirect indicators removed.
	CleanURL string                `json:"clean_url"`
	Session  *models.WizardSession `json:"session,omitempty"`
}

type RedirectOptions struct {
	AuthBaseURL string
	SecretKey   string
	TTL         time.Duration
}

// RedirectService preserves wizard state across the external authorization redirect
// as a two-phase continuation: Suspend before leaving, Resume on return.
type RedirectService interface {
	Suspend(ctx context.Context, tabID string, session *models.WizardSession, platform, origin string) (*Suspension, error)
	Resume(ctx context.Context, tabID string, userID int64, returnURL string) (*ResumeResult, bool)
}

type redirectService struct {
	store    cache.SnapshotStore
	registry ConnectionService
	opts     RedirectOptions
	now      func() time.Time
}

func NewRedirectService(store cache.SnapshotStore, registry ConnectionService, opts RedirectOptions) RedirectService {
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	return &redirectService{store: store, registry: registry, opts: opts, now: time.Now}
}

// AuthURL builds {base}/auth/{platform}?userId=..&redirect_origin=..; state carries a
// signed copy of the user id for the callback.
func AuthURL(base, platform string, userID int64, origin, state string) string {
	params := url.Values{}
	params.Add("userId", strconv.FormatInt(userID, 10))
	params.Add("redirect_origin", origin)
	if state != "" {
		params.Add("state", state)
	}
	return fmt.Sprintf("%s/auth/%s?%s", strings.TrimRight(base, "/"), url.PathEscape(platform), params.Encode())
}

func (s *redirectService) Suspend(ctx context.Context, tabID string, session *models.WizardSession, platform, origin string) (*Suspension, error) {
	platform = normalizePlatform(platform)
	if !platformPattern.MatchString(platform) {
		return nil, models.NewValidationError("platform", "unknown platform")
	}
	if session == nil {
		return nil, models.NewValidationError("session", "no active session")
	}
	if tabID == "" {
		return nil, models.NewValidationError("tab", "browsing session id is required")
	}

	token, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	now := s.now()
	snap := models.PendingRedirectSnapshot{
		Token:            token,
		TabID:            tabID,
		UserID:           session.UserID,
		Platform:         platform,
		Screen:           session.Screen,
		ReturnContext:    session.ReturnContext,
		Kind:             session.Kind,
		GeneratedCaption: session.GeneratedCaption,
		GeneratedMedia:   session.GeneratedMedia,
		Draft:            session.Draft,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.opts.TTL),
	}
	payload, err := s.seal(&snap)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session.UserID, tabID, payload, s.opts.TTL); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("save redirect snapshot: %w", err)
	}

	state, err := utils.GenerateToken(s.opts.SecretKey, strconv.FormatInt(session.UserID, 10), utils.AudienceRedirectState, s.opts.TTL)
	if err != nil {
		return nil, err
	}

	return &Suspension{
		Token:       token,
		RedirectURL: AuthURL(s.opts.AuthBaseURL, platform, session.UserID, origin, state),
		ExpiresAt:   snap.ExpiresAt,
	}, nil
}

// IsRedirectReturn reports whether the address carries the platform-connected indicator.
func IsRedirectReturn(query url.Values) bool {
	return query.Get(QueryConnected) != ""
}

// Resume consumes the snapshot of tabID. The bool is false whenever no session could
// be restored; the caller then lands on the default screen.
func (s *redirectService) Resume(ctx context.Context, tabID string, userID int64, returnURL string) (*ResumeResult, bool) {
	result := &ResumeResult{CleanURL: returnURL}

	u, err := url.Parse(returnURL)
	if err != nil {
		slog.Info(err.Error())
		return result, false
	}
	query := u.Query()
	if !IsRedirectReturn(query) {
		return result, false
	}

	result.Platform = normalizePlatform(query.Get(QueryConnected))
	result.Connected = query.Get(QuerySuccess) == "true"
	if result.Connected && platformPattern.MatchString(result.Platform) {
		s.registry.Connect(ctx, userID, result.Platform)
	}

	query.Del(QueryConnected)
	query.Del(QuerySuccess)
	u.RawQuery = query.Encode()
	result.CleanURL = u.String()

	snap, err := s.take(ctx, tabID, userID)
	if err != nil {
		slog.Info("redirect resume fell back to default screen", "tab_id", tabID, "error", err)
		metrics.ObserveResume("fallback")
		return result, false
	}

	result.Session = &models.WizardSession{
		UserID:           snap.UserID,
		Screen:           models.ParseScreen(string(snap.Screen)),
		ReturnContext:    models.ParseReturnContext(string(snap.ReturnContext)),
		Kind:             snap.Kind,
		GeneratedCaption: snap.GeneratedCaption,
		GeneratedMedia:   snap.GeneratedMedia,
		Draft:            snap.Draft,
	}
	metrics.ObserveResume("restored")
	return result, true
}

func (s *redirectService) take(ctx context.Context, tabID string, userID int64) (*models.PendingRedirectSnapshot, error) {
	if tabID == "" {
		return nil, models.ErrRedirectState
	}
	payload, err := s.store.Take(ctx, userID, tabID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRedirectState, err)
	}
	if payload == nil {
		return nil, models.ErrRedirectState
	}
	snap, err := s.open(userID, tabID, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRedirectState, err)
	}
	switch {
	case snap.Token == "":
		return nil, fmt.Errorf("%w: snapshot has no token", models.ErrRedirectState)
	case snap.UserID != userID:
		return nil, fmt.Errorf("%w: snapshot belongs to another user", models.ErrRedirectState)
	case snap.TabID != tabID:
		return nil, fmt.Errorf("%w: snapshot belongs to another tab", models.ErrRedirectState)
	case s.now().After(snap.ExpiresAt):
		return nil, fmt.Errorf("%w: snapshot expired", models.ErrRedirectState)
	case snap.Kind != models.ContentText && snap.Kind != models.ContentImage:
		return nil, fmt.Errorf("%w: unknown content kind %q", models.ErrRedirectState, snap.Kind)
	}
	return snap, nil
}

func (s *redirectService) seal(snap *models.PendingRedirectSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return utils.Seal([]byte(s.opts.SecretKey), raw, snapshotScope(snap.UserID, snap.TabID))
}

func (s *redirectService) open(userID int64, tabID string, payload []byte) (*models.PendingRedirectSnapshot, error) {
	raw, err := utils.Open([]byte(s.opts.SecretKey), payload, snapshotScope(userID, tabID))
	if err != nil {
		return nil, err
	}
	var snap models.PendingRedirectSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	if snap.ExpiresAt.IsZero() {
		return nil, errors.New("snapshot has no expiry")
	}
	return &snap, nil
}

// snapshotScope is the associated data a snapshot is sealed under; a payload copied to
// another user's or tab's key fails to open.
func snapshotScope(userID int64, tabID string) []byte {
	return []byte(strconv.FormatInt(userID, 10) + ":" + tabID)
}
