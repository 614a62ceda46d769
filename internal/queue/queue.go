package queue

import (
	"time"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/service"
)

const TaskTypeSchedulePublish = "schedule:publish"

// Queue runs scheduled posts through the publish orchestrator.
type Queue struct {
	ss service.ScheduleService
	us service.UserService
}

func NewQueue(ss service.ScheduleService, us service.UserService) *Queue {
	return &Queue{
		ss: ss,
		us: us,
	}
}

// SchedulePublishPayload pins the time a delivery was enqueued for, so deliveries made
// stale by a later time change can be told apart.
type SchedulePublishPayload struct {
	PostID      string    `json:"post_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
