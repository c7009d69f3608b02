package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/partpulse/partpulse/internal/core/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingDeliverer struct {
	mu       sync.Mutex
	jobs     []ports.EmailJob
	failures map[string]int
	calls    map[string]int
	retries  []bool
}

func (r *recordingDeliverer) Deliver(_ context.Context, job ports.EmailJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[job.Ref]++
	r.retries = append(r.retries, job.WillRetry)
	if r.failures[job.Ref] >= r.calls[job.Ref] {
		return errors.New("smtp down")
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingDeliverer) refs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Ref)
	}
	return out
}

func emailJob(to, ref string) ports.EmailJob {
	return ports.EmailJob{Kind: ports.EmailTransfer, Ref: ref, Message: ports.EmailMessage{To: []string{to}}}
}

func TestDispatcherDeliversInOrderPerRecipient(t *testing.T) {
	rec := &recordingDeliverer{}
	d := NewDispatcher(rec, DispatcherOptions{Workers: 3}, zerolog.Nop())
	d.Start(context.Background())

	for _, ref := range []string{"a", "b", "c", "d"} {
		require.NoError(t, d.Enqueue(context.Background(), emailJob("Tech@Example.com", ref)))
	}
	d.Stop()

	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.refs())
}

func TestDispatcherShardIsCaseInsensitive(t *testing.T) {
	d := NewDispatcher(&recordingDeliverer{}, DispatcherOptions{Workers: 8}, zerolog.Nop())
	assert.Equal(t,
		d.shardIndex(emailJob("ops@example.com", "1")),
		d.shardIndex(emailJob("OPS@EXAMPLE.COM", "2")))
	assert.Equal(t, d.shardIndex(ports.EmailJob{}), d.shardIndex(ports.EmailJob{}))
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	rec := &recordingDeliverer{failures: map[string]int{"flaky": 2}}
	d := NewDispatcher(rec, DispatcherOptions{Workers: 1, MaxAttempts: 3, Backoff: time.Millisecond}, zerolog.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), emailJob("a@example.com", "flaky")))
	d.Stop()

	assert.Equal(t, []string{"flaky"}, rec.refs())
	assert.Equal(t, 3, rec.calls["flaky"])
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	rec := &recordingDeliverer{failures: map[string]int{"dead": 10}}
	d := NewDispatcher(rec, DispatcherOptions{Workers: 1, MaxAttempts: 2, Backoff: time.Millisecond}, zerolog.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), emailJob("a@example.com", "dead")))
	d.Stop()

	assert.Empty(t, rec.refs())
	assert.Equal(t, 2, rec.calls["dead"])
}

func TestDispatcherMarksOnlyLastAttemptFinal(t *testing.T) {
	rec := &recordingDeliverer{failures: map[string]int{"dead": 10}}
	d := NewDispatcher(rec, DispatcherOptions{Workers: 1, MaxAttempts: 3, Backoff: time.Millisecond}, zerolog.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), emailJob("a@example.com", "dead")))
	d.Stop()

	assert.Equal(t, []bool{true, true, false}, rec.retries)
}

func TestWillRetryOutsideTask(t *testing.T) {
	assert.False(t, willRetry(context.Background()))
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	d := NewDispatcher(&recordingDeliverer{}, DispatcherOptions{}, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	err := d.Enqueue(context.Background(), emailJob("a@example.com", "late"))
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcherEnqueueHonoursContext(t *testing.T) {
	// never started, so the single shard fills up
	d := NewDispatcher(&recordingDeliverer{}, DispatcherOptions{Workers: 1}, zerolog.Nop())
	for i := 0; i < channelBuffer; i++ {
		require.NoError(t, d.Enqueue(context.Background(), emailJob("a@example.com", "x")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := d.Enqueue(ctx, emailJob("a@example.com", "overflow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcherWorkersExitOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(&recordingDeliverer{}, DispatcherOptions{Workers: 2}, zerolog.Nop())
	d.Start(ctx)
	cancel()
	d.Stop()
}

func TestNewEmailTaskDropsInlineDataForStoredAttachments(t *testing.T) {
	job := emailJob("a@example.com", "t-1")
	job.Message.Attachments = []ports.Attachment{
		{Filename: "transfer.pdf", StorageKey: "pdfs/internal-transfers/transfer-t-1.pdf", Data: []byte("%PDF-")},
		{Filename: "note.txt", Data: []byte("hi")},
	}

	task, err := newEmailTask(job)
	require.NoError(t, err)
	assert.Equal(t, TypeSendEmail, task.Type())
	assert.NotContains(t, string(task.Payload()), `"data":"JVBERi0="`)
	assert.Contains(t, string(task.Payload()), `"storage_key":"pdfs/internal-transfers/transfer-t-1.pdf"`)
	// caller's slice is untouched
	assert.NotNil(t, job.Message.Attachments[0].Data)
}
