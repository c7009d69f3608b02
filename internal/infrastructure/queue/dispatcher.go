package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	defaultWorkers     = 4
	channelBuffer      = 128
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
)

// ErrDispatcherClosed is returned by Enqueue after Stop.
var ErrDispatcherClosed = errors.New("email dispatcher closed")

// DispatcherOptions tunes the in-process queue. Zero values select defaults.
type DispatcherOptions struct {
	Workers     int
	MaxAttempts int
	Backoff     time.Duration
}

// Dispatcher is the in-process email queue used when Redis is unavailable.
// Jobs are sharded by recipient so messages to one address keep their order.
type Dispatcher struct {
	shards    []chan ports.EmailJob
	deliverer ports.EmailDeliverer
	opts      DispatcherOptions
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(deliverer ports.EmailDeliverer, opts DispatcherOptions, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	d := &Dispatcher{
		shards:    make([]chan ports.EmailJob, opts.Workers),
		deliverer: deliverer,
		opts:      opts,
		log:       log,
	}
	for i := range d.shards {
		d.shards[i] = make(chan ports.EmailJob, channelBuffer)
	}
	return d
}

// Start launches one goroutine per shard. Workers exit when ctx is cancelled
// or after Stop has drained their shard.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.shards {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop rejects new jobs, lets workers drain what is buffered and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue hands job to its shard, blocking while the shard buffer is full.
func (d *Dispatcher) Enqueue(ctx context.Context, job ports.EmailJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	idx := d.shardIndex(job)
	select {
	case d.shards[idx] <- job:
		metrics.EmailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps the first recipient deterministically to a worker.
func (d *Dispatcher) shardIndex(job ports.EmailJob) int {
	key := ""
	if len(job.Message.To) > 0 {
		key = strings.ToLower(job.Message.To[0])
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.EmailJob) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.EmailQueueDepth.WithLabelValues(label).Dec()
			d.deliver(ctx, id, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, job ports.EmailJob) {
	backoff := d.opts.Backoff
	for attempt := 1; ; attempt++ {
		job.WillRetry = attempt < d.opts.MaxAttempts
		err := d.deliverer.Deliver(ctx, job)
		if err == nil {
			return
		}
		if attempt >= d.opts.MaxAttempts {
			d.log.Error().Err(err).
				Str("kind", job.Kind).
				Str("ref", job.Ref).
				Int("worker_id", worker).
				Int("attempts", attempt).
				Msg("email delivery gave up")
			return
		}
		d.log.Warn().Err(err).Str("kind", job.Kind).Int("attempt", attempt).Msg("email delivery failed, retrying")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff *= 2
	}
}
