package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

const (
	sessionTTL = 30 * 24 * time.Hour
	draftTTL   = 7 * 24 * time.Hour

	lockTTL   = 30 * time.Second
	lockWait  = 10 * time.Second
	lockRetry = 50 * time.Millisecond
)

func sessionKey(userID int64, deviceID string) string {
	return fmt.Sprintf("wizard:session:%d:%s", userID, deviceID)
}

func snapshotKey(userID int64, tabID string) string {
	return fmt.Sprintf("wizard:redirect:%d:%s", userID, tabID)
}

func lockKey(userID int64, deviceID string) string {
	return fmt.Sprintf("wizard:lock:%d:%s", userID, deviceID)
}

func draftKey(userID int64, slot DraftSlot) string {
	return fmt.Sprintf("wizard:draft:%d:%s", userID, slot)
}

func postURLKey(userID int64) string {
	return fmt.Sprintf("wizard:post_url:%d", userID)
}

// RedisSessionStore implements SessionStore with one JSON value per device.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Get(ctx context.Context, userID int64, deviceID string) (*models.WizardSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID, deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session models.WizardSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *models.WizardSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(session.UserID, session.DeviceID), raw, sessionTTL).Err()
}

// RedisSnapshotStore implements SnapshotStore; GETDEL gives single consumption.
type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, userID int64, tabID string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, snapshotKey(userID, tabID), payload, ttl).Err()
}

func (s *RedisSnapshotStore) Take(ctx context.Context, userID int64, tabID string) ([]byte, error) {
	raw, err := s.client.GetDel(ctx, snapshotKey(userID, tabID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take snapshot: %w", err)
	}
	return raw, nil
}

// RedisDraftCache implements DraftCache. Post URLs share one hash per user.
type RedisDraftCache struct {
	client *redis.Client
}

func NewRedisDraftCache(client *redis.Client) *RedisDraftCache {
	return &RedisDraftCache{client: client}
}

func (c *RedisDraftCache) Get(ctx context.Context, userID int64, slot DraftSlot) ([]byte, error) {
	raw, err := c.client.Get(ctx, draftKey(userID, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return raw, err
}

func (c *RedisDraftCache) Set(ctx context.Context, userID int64, slot DraftSlot, value []byte) error {
	return c.client.Set(ctx, draftKey(userID, slot), value, draftTTL).Err()
}

func (c *RedisDraftCache) Delete(ctx context.Context, userID int64, slot DraftSlot) error {
	return c.client.Del(ctx, draftKey(userID, slot)).Err()
}

func (c *RedisDraftCache) SetLastPostURL(ctx context.Context, userID int64, platform, url string) error {
	return c.client.HSet(ctx, postURLKey(userID), platform, url).Err()
}

func (c *RedisDraftCache) LastPostURL(ctx context.Context, userID int64, platform string) (string, error) {
	url, err := c.client.HGet(ctx, postURLKey(userID), platform).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return url, err
}

// The lock value is a per-holder token; only the holder may extend or release it.
var (
	releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisSessionLocker implements SessionLocker with SET NX and a TTL. A holder that
// dies without unlocking frees the session once the TTL runs out; a live holder keeps
// extending it, so a long publish batch never loses the lock halfway.
type RedisSessionLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisSessionLocker(client *redis.Client) *RedisSessionLocker {
	return &RedisSessionLocker{client: client, ttl: lockTTL, wait: lockWait, retry: lockRetry}
}

func (l *RedisSessionLocker) Lock(ctx context.Context, userID int64, deviceID string) (func(), error) {
	key := lockKey(userID, deviceID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, models.ErrSessionBusy
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := releaseLock.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
				slog.Warn("release session lock failed", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the lock every third of its TTL until stop is closed. It runs on
// a detached context since the holder may outlive the request that took the lock.
func (l *RedisSessionLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			kept, err := refreshLock.Run(context.Background(), l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				slog.Warn("refresh session lock failed", "key", key, "error", err)
				continue
			}
			if kept == 0 {
				slog.Warn("session lock lost", "key", key)
				return
			}
		}
	}
}
