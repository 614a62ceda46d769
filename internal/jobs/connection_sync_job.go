package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

const (
	syncConcurrency = 10
	syncTimeout     = 30 * time.Second
)

// ConnectionSyncJob re-reads the durable connection state of every known user so
// connections made or revoked elsewhere reach the registry.
type ConnectionSyncJob struct {
	cs service.ConnectionService
}

func NewConnectionSyncJob(cs service.ConnectionService) *ConnectionSyncJob {
	return &ConnectionSyncJob{
		cs: cs,
	}
}

func (c *ConnectionSyncJob) SyncConnections() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, syncConcurrency)

	users, err := c.cs.Users(ctx)
	if err != nil {
		slog.Info("connection sync failed", "error", err)
		return
	}

	for _, userID := range users {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(userID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.cs.Load(ctx, userID); err != nil {
				slog.Info("connection sync failed", "user_id", userID, "error", err)
			}
		}(userID)
	}

	wg.Wait()
}

// Schedule registers the job on c to run every interval.
func (c *ConnectionSyncJob) Schedule(cr *cron.Cron, interval time.Duration) error {
	return cr.AddFunc("@every "+interval.String(), c.SyncConnections)
}
