package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
)

// ConnectionService is the connection registry. The in-process cache answers
// IsConnected synchronously; the durable store is written through best-effort and
// remains the eventual source of truth. A user's entries are read from the store
// the first time the process touches them, so a restart starts from what was
// persisted rather than from nothing.
type ConnectionService interface {
	IsConnected(userID int64, platform string) bool
	Connect(ctx context.Context, userID int64, platform string)
	Disconnect(ctx context.Context, userID int64, platform string)
	DisconnectAll(ctx context.Context, userID int64)
	List(userID int64) []models.PlatformConnection
	Load(ctx context.Context, userID int64) error
	Ensure(ctx context.Context, userID int64) error
	Users(ctx context.Context) ([]int64, error)
}

type connectionService struct {
	mu     sync.RWMutex
	cache  map[int64]map[string]models.PlatformConnection
	loaded map[int64]bool
	repo   repository.ConnectionRepository
	now    func() time.Time
}

func NewConnectionService(repo repository.ConnectionRepository) ConnectionService {
	return &connectionService{
		cache:  make(map[int64]map[string]models.PlatformConnection),
		loaded: make(map[int64]bool),
		repo:   repo,
		now:    time.Now,
	}
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

func (s *connectionService) IsConnected(userID int64, platform string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc, ok := s.cache[userID][normalizePlatform(platform)]
	return ok && pc.Connected
}

func (s *connectionService) Connect(ctx context.Context, userID int64, platform string) {
	platform = normalizePlatform(platform)
	if platform == "" {
		return
	}
	pc := models.PlatformConnection{
		UserID:      userID,
		Platform:    platform,
		Connected:   true,
		ConnectedAt: s.now(),
		UpdatedAt:   s.now(),
	}

	s.warm(ctx, userID)

	s.mu.Lock()
	if s.cache[userID] == nil {
		s.cache[userID] = make(map[string]models.PlatformConnection)
	}
	s.cache[userID][platform] = pc
	s.mu.Unlock()

	if s.repo == nil {
		return
	}
	if err := s.repo.Upsert(ctx, &pc); err != nil {
		slog.Warn("persist connection failed", "user_id", userID, "platform", platform, "error", err)
	}
}

func (s *connectionService) Disconnect(ctx context.Context, userID int64, platform string) {
	platform = normalizePlatform(platform)
	s.warm(ctx, userID)

	s.mu.Lock()
	delete(s.cache[userID], platform)
	s.mu.Unlock()

	if s.repo == nil {
		return
	}
	if err := s.repo.Remove(ctx, userID, platform); err != nil {
		slog.Warn("remove connection failed", "user_id", userID, "platform", platform, "error", err)
	}
}

func (s *connectionService) DisconnectAll(ctx context.Context, userID int64) {
	s.mu.Lock()
	s.cache[userID] = make(map[string]models.PlatformConnection)
	s.loaded[userID] = true
	s.mu.Unlock()

	if s.repo == nil {
		return
	}
	if err := s.repo.RemoveAll(ctx, userID); err != nil {
		slog.Warn("remove connections failed", "user_id", userID, "error", err)
	}
}

func (s *connectionService) List(userID int64) []models.PlatformConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PlatformConnection, 0, len(s.cache[userID]))
	for _, pc := range s.cache[userID] {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

// Load replaces the cached entries of userID with the durable store's view.
func (s *connectionService) Load(ctx context.Context, userID int64) error {
	if s.repo == nil {
		s.mu.Lock()
		s.loaded[userID] = true
		s.mu.Unlock()
		return nil
	}
	connections, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}
	fresh := make(map[string]models.PlatformConnection, len(connections))
	for _, pc := range connections {
		if pc.Connected {
			fresh[normalizePlatform(pc.Platform)] = *pc
		}
	}

	s.mu.Lock()
	s.cache[userID] = fresh
	s.loaded[userID] = true
	s.mu.Unlock()
	return nil
}

// Ensure loads userID from the durable store unless that already happened in this
// process. A failed load is retried on the next call.
func (s *connectionService) Ensure(ctx context.Context, userID int64) error {
	s.mu.RLock()
	done := s.loaded[userID]
	s.mu.RUnlock()
	if done {
		return nil
	}
	return s.Load(ctx, userID)
}

func (s *connectionService) warm(ctx context.Context, userID int64) {
	if err := s.Ensure(ctx, userID); err != nil {
		slog.Warn("load connections failed", "user_id", userID, "error", err)
	}
}

// Users lists every user with a persisted connection plus any the cache knows
// about, so the periodic sync also reaches users this process never served.
func (s *connectionService) Users(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	if s.repo != nil {
		ids, err := s.repo.ListUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	s.mu.RLock()
	for id := range s.cache {
		seen[id] = struct{}{}
	}
	s.mu.RUnlock()

	users := make([]int64, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}
