package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

type fakePublisher struct {
	mu      sync.Mutex
	calls   []transfer.PublishRequest
	replies map[string]*transfer.PublishResponse
	errs    map[string]error
	stall   map[string]bool
	panics  map[string]bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		replies: make(map[string]*transfer.PublishResponse),
		errs:    make(map[string]error),
		stall:   make(map[string]bool),
		panics:  make(map[string]bool),
	}
}

func (f *fakePublisher) Publish(ctx context.Context, req transfer.PublishRequest) (*transfer.PublishResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	reply, err := f.replies[req.Platform], f.errs[req.Platform]
	stall, panics := f.stall[req.Platform], f.panics[req.Platform]
	f.mu.Unlock()

	switch {
	case panics:
		panic("publisher exploded")
	case stall:
		<-ctx.Done()
		return nil, ctx.Err()
	case err != nil:
		return nil, err
	case reply != nil:
		return reply, nil
	}
	return &transfer.PublishResponse{
		Status:  transfer.PublishStatusSuccess,
		PostURL: "https://" + req.Platform + ".example/p/1",
	}, nil
}

func (f *fakePublisher) platforms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Platform)
	}
	return out
}

type fakeLivePostRepo struct {
	mu      sync.Mutex
	created []*models.LivePost
	err     error
}

func (r *fakeLivePostRepo) Create(_ context.Context, lp *models.LivePost) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.created = append(r.created, lp)
	return int64(len(r.created)), nil
}

func (r *fakeLivePostRepo) ListByUserID(_ context.Context, userID int64, limit int) ([]*models.LivePost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LivePost
	for _, lp := range r.created {
		if lp.UserID == userID {
			out = append(out, lp)
		}
	}
	return out, nil
}

type fakeScheduledPostRepo struct {
	mu        sync.Mutex
	posts     map[string]*models.ScheduledPost
	removed   []string
	createErr error
}

func newFakeScheduledPostRepo(posts ...*models.ScheduledPost) *fakeScheduledPostRepo {
	r := &fakeScheduledPostRepo{posts: make(map[string]*models.ScheduledPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakeScheduledPostRepo) Create(_ context.Context, _ *sql.Tx, post *models.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakeScheduledPostRepo) GetByID(_ context.Context, id string) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeScheduledPostRepo) ListByUserID(_ context.Context, userID int64) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *fakeScheduledPostRepo) CheckByUserID(_ context.Context, postID string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *fakeScheduledPostRepo) UpdateTime(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return models.ErrNotFound
	}
	p.ScheduledAt = at
	return nil
}

func (r *fakeScheduledPostRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	r.removed = append(r.removed, id)
	return nil
}

type scheduled struct {
	postID string
	at     time.Time
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []scheduled
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, postID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, scheduled{postID: postID, at: at})
	return nil
}

type fakeSettings struct {
	loc *time.Location
}

func (f *fakeSettings) GetSettingsInfo(_ context.Context, userID int64) (*models.Settings, error) {
	return &models.Settings{UserID: userID, Timezone: f.loc.String(), PostingTime: "09:00"}, nil
}

func (f *fakeSettings) UpdateSettings(context.Context, int64, string, string) error {
	return errors.New("not supported")
}

func (f *fakeSettings) Location(context.Context, int64) *time.Location {
	if f.loc == nil {
		return time.UTC
	}
	return f.loc
}

type fakeConnectionRepo struct {
	mu   sync.Mutex
	rows map[int64][]*models.PlatformConnection
	err  error
}

func (r *fakeConnectionRepo) Upsert(_ context.Context, pc *models.PlatformConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.rows == nil {
		r.rows = make(map[int64][]*models.PlatformConnection)
	}
	cp := *pc
	for i, row := range r.rows[pc.UserID] {
		if row.Platform == pc.Platform {
			r.rows[pc.UserID][i] = &cp
			return nil
		}
	}
	r.rows[pc.UserID] = append(r.rows[pc.UserID], &cp)
	return nil
}

func (r *fakeConnectionRepo) ListByUserID(_ context.Context, userID int64) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.rows[userID], nil
}

func (r *fakeConnectionRepo) Remove(_ context.Context, userID int64, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	kept := r.rows[userID][:0]
	for _, row := range r.rows[userID] {
		if row.Platform != platform {
			kept = append(kept, row)
		}
	}
	r.rows[userID] = kept
	return nil
}

func (r *fakeConnectionRepo) RemoveAll(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.rows, userID)
	return nil
}

func (r *fakeConnectionRepo) ListUserIDs(context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var ids []int64
	for id, rows := range r.rows {
		for _, row := range rows {
			if row.Connected {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

// fakeSessionStore keeps sessions as JSON so callers never share a pointer with it.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string][]byte)}
}

func (s *fakeSessionStore) Get(_ context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	s.mu.Lock()
	raw, ok := s.sessions[fmt.Sprintf("%d:%s", userID, deviceID)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var session models.WizardSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *fakeSessionStore) Put(_ context.Context, session *models.WizardSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[fmt.Sprintf("%d:%s", session.UserID, session.DeviceID)] = raw
	return nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{entries: make(map[string][]byte)}
}

func (s *fakeSnapshotStore) Save(_ context.Context, userID int64, tabID string, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fmt.Sprintf("%d:%s", userID, tabID)] = append([]byte(nil), payload...)
	return nil
}

func (s *fakeSnapshotStore) Take(_ context.Context, userID int64, tabID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d:%s", userID, tabID)
	payload, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	delete(s.entries, key)
	return payload, nil
}

func (s *fakeSnapshotStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fakeDraftCache struct {
	mu    sync.Mutex
	slots map[string][]byte
	urls  map[string]string
}

func newFakeDraftCache() *fakeDraftCache {
	return &fakeDraftCache{slots: make(map[string][]byte), urls: make(map[string]string)}
}

func (c *fakeDraftCache) Get(_ context.Context, userID int64, slot cache.DraftSlot) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[fmt.Sprintf("%d:%s", userID, slot)], nil
}

func (c *fakeDraftCache) Set(_ context.Context, userID int64, slot cache.DraftSlot, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[fmt.Sprintf("%d:%s", userID, slot)] = append([]byte(nil), value...)
	return nil
}

func (c *fakeDraftCache) Delete(_ context.Context, userID int64, slot cache.DraftSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, fmt.Sprintf("%d:%s", userID, slot))
	return nil
}

func (c *fakeDraftCache) SetLastPostURL(_ context.Context, userID int64, platform, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls[fmt.Sprintf("%d:%s", userID, platform)] = url
	return nil
}

func (c *fakeDraftCache) LastPostURL(_ context.Context, userID int64, platform string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urls[fmt.Sprintf("%d:%s", userID, platform)], nil
}

// fakeLocker is an in-process SessionLocker. busy makes every Lock fail as if another
// process held the session.
type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]*sync.Mutex
	busy  bool
	locks int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]*sync.Mutex)}
}

func (l *fakeLocker) Lock(_ context.Context, userID int64, deviceID string) (func(), error) {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return nil, models.ErrSessionBusy
	}
	key := fmt.Sprintf("%d:%s", userID, deviceID)
	m, ok := l.held[key]
	if !ok {
		m = &sync.Mutex{}
		l.held[key] = m
	}
	l.locks++
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
