package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

const testDevice = "device-1"

type wizardFixture struct {
	svc      WizardService
	sessions *fakeSessionStore
	locker   *fakeLocker
	pub      *fakePublisher
	sched    *scheduleFixture
	registry ConnectionService
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	pf := newPublishFixture(t, "twitter", "linkedin")
	sf := &scheduleFixture{
		sp:        newFakeScheduledPostRepo(),
		scheduler: &fakeScheduler{},
		drafts:    pf.drafts,
		pub:       pf.pub,
	}
	pf.svc.sp = sf.sp
	sf.svc = NewScheduleService(sf.sp, &fakeSettings{}, sf.scheduler, pf.svc, pf.drafts).(*scheduleService)
	sf.svc.now = func() time.Time { return scheduleNow }

	redirect := NewRedirectService(newFakeSnapshotStore(), pf.registry, RedirectOptions{
		AuthBaseURL: "https://auth.example",
		SecretKey:   testSecret,
		TTL:         time.Minute,
	})

	sessions := newFakeSessionStore()
	locker := newFakeLocker()
	return &wizardFixture{
		svc:      NewWizardService(sessions, locker, pf.drafts, pf.svc, sf.svc, redirect),
		sessions: sessions,
		locker:   locker,
		pub:      pf.pub,
		sched:    sf,
		registry: pf.registry,
	}
}

func strPtr(s string) *string { return &s }

func (f *wizardFixture) draft(t *testing.T, caption string, platforms ...string) {
	t.Helper()
	_, err := f.svc.UpdateDraft(context.Background(), testUser, testDevice, transfer.DraftUpdate{
		Caption:   strPtr(caption),
		Platforms: platforms,
	})
	if err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}
}

func TestWizardStartsOnDashboard(t *testing.T) {
	f := newWizardFixture(t)
	s, err := f.svc.Session(context.Background(), testUser, testDevice)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if s.Screen != models.ScreenDashboard || s.Kind != models.ContentText {
		t.Errorf("new session = %+v", s)
	}
}

func TestWizardDraftSurvivesNewDevice(t *testing.T) {
	f := newWizardFixture(t)
	f.draft(t, "hello", "twitter")

	other, _ := f.svc.Session(context.Background(), testUser, "device-2")
	if other.Draft.Caption != "hello" || len(other.Draft.Platforms) != 1 {
		t.Errorf("hydrated draft = %+v", other.Draft)
	}
}

func TestWizardTransitionRejectsOutcomeEvents(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.svc.Transition(context.Background(), testUser, testDevice, Event{Type: EventPublishCompleted})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Transition() error = %v, want validation", err)
	}
}

func TestWizardPublishFlow(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Publish(ctx, testUser, testDevice); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("Publish() with empty draft error = %v, want validation", err)
	}

	f.draft(t, "hello", "twitter", "linkedin")
	f.pub.errs["linkedin"] = errors.New("token expired")

	s, err := f.svc.Publish(ctx, testUser, testDevice)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if s.Screen != models.ScreenPublishResults || s.LastBatch == nil || s.LastBatch.Status != models.BatchPartial {
		t.Fatalf("after publish = %s %+v", s.Screen, s.LastBatch)
	}

	stored, _ := f.sessions.Get(ctx, testUser, testDevice)
	if stored.Screen != models.ScreenPublishResults {
		t.Errorf("stored screen = %s", stored.Screen)
	}

	delete(f.pub.errs, "linkedin")
	f.pub.calls = nil
	s, err = f.svc.Retry(ctx, testUser, testDevice)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got := f.pub.platforms(); len(got) != 1 || got[0] != "linkedin" {
		t.Errorf("retried = %v, want [linkedin]", got)
	}
	if s.Screen != models.ScreenPublishSuccess {
		t.Errorf("after retry = %s, want publish_success", s.Screen)
	}
}

func TestWizardScheduleFlow(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	f.draft(t, "hello", "twitter")

	if _, _, err := f.svc.Commit(ctx, testUser, testDevice); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Commit() without time error = %v, want validation", err)
	}

	if _, err := f.svc.ScheduleTime(ctx, testUser, testDevice, "2026-03-11T10:00"); err != nil {
		t.Fatalf("ScheduleTime() error = %v", err)
	}
	s, post, err := f.svc.Commit(ctx, testUser, testDevice)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if s.Screen != models.ScreenScheduleConfirm || post == nil {
		t.Errorf("after commit = %s, %+v", s.Screen, post)
	}
	if len(f.sched.scheduler.tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(f.sched.scheduler.tasks))
	}
}

func TestWizardEditTimeReturnsToEditScreen(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	f.sched.sp.posts["p1"] = &models.ScheduledPost{
		ID: "p1", UserID: testUser, Platforms: []string{"twitter"},
		MediaRef: "m1", Kind: models.ContentImage, ScheduledAt: scheduleNow.Add(time.Hour),
	}

	if _, err := f.svc.Transition(ctx, testUser, testDevice, Event{
		Type: EventNavigate, Target: string(models.ScreenScheduleTime), Context: models.ReturnEditImage,
	}); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	s, err := f.svc.EditTime(ctx, testUser, testDevice, "p1", "2026-03-12T10:00")
	if err != nil {
		t.Fatalf("EditTime() error = %v", err)
	}
	if s.Screen != models.ScreenEditPostImage {
		t.Errorf("after edit = %s, want edit_post_image", s.Screen)
	}
	if s.Draft.EditingPostID != "p1" || s.Draft.ScheduledAt == nil {
		t.Errorf("draft = %+v", s.Draft)
	}
	if len(f.sched.scheduler.tasks) != 0 {
		t.Error("editing the time committed it")
	}
}

func TestWizardRedirectRoundTrip(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	f.draft(t, "hello", "twitter", "threads")
	if _, err := f.svc.Transition(ctx, testUser, testDevice, Event{Type: EventNavigate, Target: string(models.ScreenConnectAccounts)}); err != nil {
		t.Fatal(err)
	}

	susp, err := f.svc.Suspend(ctx, testUser, testDevice, "tab-1", "threads", "https://app.example/")
	if err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if susp.RedirectURL == "" {
		t.Fatal("no redirect url")
	}

	// The full page load lost the in-memory session.
	if err := f.sessions.Put(ctx, models.NewWizardSession(testUser, testDevice)); err != nil {
		t.Fatal(err)
	}

	s, res, err := f.svc.Resume(ctx, testUser, testDevice, "tab-1", "https://app.example/?connected=threads&success=true")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if s.Screen != models.ScreenConnectAccounts || len(s.Draft.Platforms) != 2 {
		t.Errorf("resumed session = %s %+v", s.Screen, s.Draft)
	}
	if res.CleanURL != "https://app.example/" {
		t.Errorf("clean url = %s", res.CleanURL)
	}
	if !f.registry.IsConnected(testUser, "threads") {
		t.Error("threads not connected after resume")
	}

	s, _, _ = f.svc.Resume(ctx, testUser, testDevice, "tab-1", "https://app.example/?connected=threads&success=true")
	if s.Screen != models.ScreenDashboard {
		t.Errorf("second resume = %s, want dashboard", s.Screen)
	}
}

func TestWizardBusySessionRejectsWrites(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	f.draft(t, "hello", "twitter")
	f.locker.busy = true

	if _, err := f.svc.Publish(ctx, testUser, testDevice); !errors.Is(err, models.ErrSessionBusy) {
		t.Fatalf("Publish() error = %v, want ErrSessionBusy", err)
	}
	if _, _, err := f.svc.Resume(ctx, testUser, testDevice, "tab-1", "https://app.example/?connected=x"); !errors.Is(err, models.ErrSessionBusy) {
		t.Errorf("Resume() error = %v, want ErrSessionBusy", err)
	}
	if len(f.pub.platforms()) != 0 {
		t.Error("busy session still published")
	}

	// Reads do not take the lock.
	if _, err := f.svc.Session(ctx, testUser, testDevice); err != nil {
		t.Errorf("Session() error = %v", err)
	}
}

func TestWizardWritesTakeSessionLock(t *testing.T) {
	f := newWizardFixture(t)
	f.draft(t, "hello", "twitter")
	if _, err := f.svc.Publish(context.Background(), testUser, testDevice); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if f.locker.locks != 2 {
		t.Errorf("locks taken = %d, want one per write", f.locker.locks)
	}
}
