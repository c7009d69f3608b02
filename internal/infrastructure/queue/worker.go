package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/ports"
)

// Worker consumes email tasks from Redis and hands them to the deliverer.
type Worker struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	deliverer ports.EmailDeliverer
	log       zerolog.Logger
}

// NewWorker creates the asynq server and registers the email handler. Call
// Start to begin processing.
func NewWorker(redisOpt asynq.RedisClientOpt, deliverer ports.EmailDeliverer, concurrency int, log zerolog.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{emailQueue: 1},
		LogLevel:    asynq.WarnLevel,
	})
	w := &Worker{srv: srv, mux: asynq.NewServeMux(), deliverer: deliverer, log: log}
	w.mux.HandleFunc(TypeSendEmail, w.handleSendEmail)
	return w
}

func (w *Worker) handleSendEmail(ctx context.Context, t *asynq.Task) error {
	var job ports.EmailJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		w.log.Error().Err(err).Msg("email task payload invalid")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	job.WillRetry = willRetry(ctx)
	return w.deliverer.Deliver(ctx, job)
}

// willRetry reports whether asynq will run the task again after a failure.
// Outside a task context it reports false.
func willRetry(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried < maxRetry
}

// Start begins processing in the background. Signal handling stays with the caller.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown waits for in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
