package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

func (j *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeSchedulePublish, j.HandleSchedulePublishTask)
}

func (j *Queue) HandleSchedulePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	return j.PublishPost(ctx, payload)
}

// PublishPost publishes a due post. Batch failures are reported to the user as a
// notification rather than retried: a retry would re-post to the platforms that
// already succeeded.
func (j *Queue) PublishPost(ctx context.Context, payload SchedulePublishPayload) error {
	batch, err := j.ss.PublishDue(ctx, payload.PostID, payload.ScheduledAt)
	if batch == nil {
		if err != nil {
			slog.Info(err.Error())
		}
		return err
	}

	if batch.Status != models.BatchSuccess && j.us != nil {
		msg := fmt.Sprintf("Scheduled post could not be published to %s", strings.Join(batch.Platforms(models.AttemptFailed), ", "))
		if nErr := j.us.Notify(ctx, batch.UserID, msg); nErr != nil {
			slog.Info(nErr.Error())
		}
	}

	slog.Info("scheduled post published", "post_id", payload.PostID, "batch_id", batch.ID, "status", batch.Status)
	return nil
}
