package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

type stubSchedule struct {
	service.ScheduleService
	batch *models.PublishBatch
	err   error
	got   SchedulePublishPayload
}

func (s *stubSchedule) PublishDue(_ context.Context, postID string, at time.Time) (*models.PublishBatch, error) {
	s.got = SchedulePublishPayload{PostID: postID, ScheduledAt: at}
	return s.batch, s.err
}

type stubUsers struct {
	service.UserService
	messages []string
}

func (s *stubUsers) Notify(_ context.Context, _ int64, message string) error {
	s.messages = append(s.messages, message)
	return nil
}

func TestHandleSchedulePublishTask(t *testing.T) {
	at := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	partial := &models.PublishBatch{
		ID:     "b1",
		UserID: 7,
		Status: models.BatchPartial,
		Attempts: []models.PublishAttempt{
			{Platform: "twitter", Status: models.AttemptSuccess},
			{Platform: "linkedin", Status: models.AttemptFailed},
		},
	}

	tests := []struct {
		name       string
		batch      *models.PublishBatch
		err        error
		wantErr    bool
		wantNotify int
	}{
		{name: "success", batch: &models.PublishBatch{ID: "b0", Status: models.BatchSuccess}},
		{name: "partial notifies", batch: partial, wantNotify: 1},
		{name: "stale delivery"},
		{name: "lookup failure", err: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss := &stubSchedule{batch: tt.batch, err: tt.err}
			us := &stubUsers{}
			q := NewQueue(ss, us)

			task, err := NewSchedulePublishTask(SchedulePublishPayload{PostID: "p1", ScheduledAt: at})
			if err != nil {
				t.Fatal(err)
			}
			err = q.HandleSchedulePublishTask(context.Background(), task)
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleSchedulePublishTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ss.got.PostID != "p1" || !ss.got.ScheduledAt.Equal(at) {
				t.Errorf("PublishDue got %+v", ss.got)
			}
			if len(us.messages) != tt.wantNotify {
				t.Errorf("notifications = %v", us.messages)
			}
			if tt.wantNotify > 0 && !strings.Contains(us.messages[0], "linkedin") {
				t.Errorf("notification = %q, want failed platform named", us.messages[0])
			}
		})
	}
}

func TestHandleSchedulePublishTaskBadPayload(t *testing.T) {
	q := NewQueue(&stubSchedule{}, nil)
	err := q.HandleSchedulePublishTask(context.Background(), asynq.NewTask(TaskTypeSchedulePublish, []byte("nope")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("error = %v, want SkipRetry", err)
	}
}

func TestSchedulePublishTaskPayload(t *testing.T) {
	at := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	task, err := NewSchedulePublishTask(SchedulePublishPayload{PostID: "p1", ScheduledAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskTypeSchedulePublish {
		t.Errorf("type = %s", task.Type())
	}
	var got SchedulePublishPayload
	if err := json.Unmarshal(task.Payload(), &got); err != nil || got.PostID != "p1" {
		t.Errorf("payload = %s, %v", task.Payload(), err)
	}
}
