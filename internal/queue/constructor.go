package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const taskRetention = 24 * time.Hour

// Enqueuer schedules publish tasks on the asynq queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) Schedule(ctx context.Context, postID string, at time.Time) error {
	return EnqueuePost(ctx, e.client, SchedulePublishPayload{PostID: postID, ScheduledAt: at.UTC()})
}

func EnqueuePost(ctx context.Context, asynqClient *asynq.Client, payload SchedulePublishPayload) error {
	task, err := NewSchedulePublishTask(payload)
	if err != nil {
		return err
	}

	info, err := asynqClient.EnqueueContext(ctx, task,
		asynq.ProcessAt(payload.ScheduledAt),
		asynq.MaxRetry(0),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("task scheduled", "task_id", info.ID, "post_id", payload.PostID, "at", payload.ScheduledAt)
	return nil
}

func NewSchedulePublishTask(payload SchedulePublishPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSchedulePublish, taskPayload), nil
}
