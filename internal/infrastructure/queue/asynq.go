package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	TypeSendEmail = "email:send"
	emailQueue    = "email"

	taskMaxRetry = 5
	taskTimeout  = time.Minute
)

// TaskEnqueuer publishes email jobs to Redis through asynq.
type TaskEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(redisOpt asynq.RedisClientOpt, log zerolog.Logger) *TaskEnqueuer {
	return &TaskEnqueuer{client: asynq.NewClient(redisOpt), log: log}
}

func (q *TaskEnqueuer) Close() error {
	return q.client.Close()
}

// newEmailTask encodes job. Attachments travel by storage key only.
func newEmailTask(job ports.EmailJob) (*asynq.Task, error) {
	atts := make([]ports.Attachment, len(job.Message.Attachments))
	for i, a := range job.Message.Attachments {
		if a.StorageKey != "" {
			a.Data = nil
		}
		atts[i] = a
	}
	job.Message.Attachments = atts
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode email job: %w", err)
	}
	return asynq.NewTask(TypeSendEmail, payload,
		asynq.Queue(emailQueue),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Timeout(taskTimeout),
	), nil
}

func (q *TaskEnqueuer) Enqueue(ctx context.Context, job ports.EmailJob) error {
	task, err := newEmailTask(job)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		q.log.Warn().Err(err).Str("kind", job.Kind).Str("ref", job.Ref).Msg("enqueue email failed")
		return fmt.Errorf("enqueue email: %w", err)
	}
	q.log.Debug().Str("task_id", info.ID).Str("kind", job.Kind).Msg("email enqueued")
	return nil
}

var _ ports.EmailQueue = (*TaskEnqueuer)(nil)
