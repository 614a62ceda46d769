package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	config "github.com/suryatejavarmaa/DigiMark-sub000/configs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

type stubWizard struct {
	service.WizardService
	lastDevice string
	lastTab    string
	lastEvent  service.Event
	publishErr error
	resumeURL  string
	busy       bool
}

func (s *stubWizard) Session(_ context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	s.lastDevice = deviceID
	return models.NewWizardSession(userID, deviceID), nil
}

func (s *stubWizard) Transition(_ context.Context, userID int64, deviceID string, ev service.Event) (*models.WizardSession, error) {
	s.lastEvent = ev
	if s.busy {
		return nil, models.ErrSessionBusy
	}
	if ev.Target == string(models.ScreenPublishProgress) {
		return nil, models.NewValidationError("platforms", "select at least one platform")
	}
	session := models.NewWizardSession(userID, deviceID)
	session.Screen = models.ParseScreen(ev.Target)
	return session, nil
}

func (s *stubWizard) Publish(_ context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	session := models.NewWizardSession(userID, deviceID)
	session.Screen = models.ScreenPublishResults
	return session, s.publishErr
}

func (s *stubWizard) Resume(_ context.Context, userID int64, deviceID, tabID, returnURL string) (*models.WizardSession, *service.ResumeResult, error) {
	s.lastTab = tabID
	s.resumeURL = returnURL
	session := models.NewWizardSession(userID, deviceID)
	session.Screen = models.ScreenPlatformSelect
	return session, &service.ResumeResult{CleanURL: "https://app.example/"}, nil
}

type stubSchedule struct {
	service.ScheduleService
}

func (stubSchedule) Remove(_ context.Context, _ int64, postID string) error {
	if postID == "mine" {
		return nil
	}
	return fmt.Errorf("scheduled post %s: %w", postID, models.ErrNotFound)
}

func newTestApp(ws service.WizardService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return c.Next()
	})

	wizard := NewWizardHandler(ws)
	app.Get("/api/wizard/session", wizard.GetSession)
	app.Post("/api/wizard/transition", wizard.Transition)
	app.Post("/api/publish", wizard.Publish)

	schedule := NewScheduleHandler(stubSchedule{})
	app.Post("/api/schedule/remove", schedule.RemovePost)

	platform := NewPlatformHandler(service.NewConnectionService(nil), ws, config.Config{FrontendURL: "https://app.example"})
	app.Get("/auth/:platform/return", platform.ReturnLanding)
	return app
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestGetSessionUsesDeviceHeader(t *testing.T) {
	ws := &stubWizard{}
	app := newTestApp(ws)

	tests := []struct {
		header string
		want   string
	}{
		{header: "phone-1", want: "phone-1"},
		{header: "", want: defaultDevice},
		{header: "../../etc", want: defaultDevice},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/wizard/session", nil)
		if tt.header != "" {
			req.Header.Set(HeaderDeviceID, tt.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if ws.lastDevice != tt.want {
			t.Errorf("device = %q, want %q", ws.lastDevice, tt.want)
		}
	}
}

func TestTransition(t *testing.T) {
	ws := &stubWizard{}
	app := newTestApp(ws)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "navigate", body: `{"type":"navigate","target":"calendar"}`, wantCode: fiber.StatusOK},
		{name: "default type", body: `{"target":"schedule_time","context":"edit_image"}`, wantCode: fiber.StatusOK},
		{name: "guarded", body: `{"type":"navigate","target":"publish_progress"}`, wantCode: fiber.StatusBadRequest},
		{name: "bad json", body: `{`, wantCode: fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/wizard/transition", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
		})
	}

	if ws.lastEvent.Type != service.EventNavigate {
		t.Errorf("event type = %q, want navigate", ws.lastEvent.Type)
	}
}

func TestTransitionCarriesReturnContext(t *testing.T) {
	ws := &stubWizard{}
	app := newTestApp(ws)

	req := httptest.NewRequest("POST", "/api/wizard/transition", strings.NewReader(`{"target":"schedule_time","context":"detail_text"}`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req); err != nil {
		t.Fatal(err)
	}
	if ws.lastEvent.Context != models.ReturnDetailText {
		t.Errorf("context = %q, want detail_text", ws.lastEvent.Context)
	}
}

func TestPublishAbortedStillReturnsSession(t *testing.T) {
	ws := &stubWizard{publishErr: fmt.Errorf("%w: loop panicked", models.ErrBatchAborted)}
	app := newTestApp(ws)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/publish", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	body := decode(t, resp.Body)
	session, ok := body["session"].(map[string]any)
	if !ok || session["screen"] != string(models.ScreenPublishResults) {
		t.Errorf("body = %v", body)
	}
}

func TestTransitionOnBusySessionConflicts(t *testing.T) {
	app := newTestApp(&stubWizard{busy: true})

	req := httptest.NewRequest("POST", "/api/wizard/transition", strings.NewReader(`{"target":"calendar"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if body := decode(t, resp.Body); body["error"] != models.ErrSessionBusy.Error() {
		t.Errorf("body = %v", body)
	}
}

func TestRemovePostNotFound(t *testing.T) {
	app := newTestApp(&stubWizard{})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/schedule/remove?id=theirs", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/api/schedule/remove?id=mine", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestReturnLandingRedirectsToRestoredScreen(t *testing.T) {
	ws := &stubWizard{}
	app := newTestApp(ws)

	resp, err := app.Test(httptest.NewRequest("GET", "/auth/LinkedIn/return?success=true&tab=tab-1", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://app.example/?screen=platform_select" {
		t.Errorf("location = %q", loc)
	}
	if ws.lastTab != "tab-1" {
		t.Errorf("tab = %q, want tab-1", ws.lastTab)
	}
	if !strings.Contains(ws.resumeURL, "connected=linkedin") || !strings.Contains(ws.resumeURL, "success=true") {
		t.Errorf("resume url = %q", ws.resumeURL)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("f", "r"), fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", models.ErrNotFound), fiber.StatusNotFound},
		{fmt.Errorf("publish: %w", models.ErrSessionBusy), fiber.StatusConflict},
		{models.ErrBatchAborted, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
