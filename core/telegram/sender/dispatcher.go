package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/menacebot/core/logger"
	"github.com/m3rciful/menacebot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// Dispatcher runs outbound Telegram calls off the update loop. It has a single
// worker so jobs complete in enqueue order: an admin card never overtakes the
// notification it belongs to.
type Dispatcher struct {
	opts Options
	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

// Enqueue schedules run. It never blocks: a saturated queue rejects the job.
// run must be safe to repeat when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		logger.Warn(ctx, logger.CompSender, "send.drop",
			append(job{action: action, endpoint: endpoint}.attrs(),
				slog.Int("queue_size", d.opts.QueueSize))...,
		)
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that finally failed.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until the queued ones ran.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for j := range d.jobs {
		if _, err := d.runJob(j); err != nil {
			d.errs.Add(1)
		}
	}
}

// runJob runs j until it succeeds or may no longer be retried. It returns
// the number of runs made.
func (d *Dispatcher) runJob(j job) (int, error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	maxAttempts := d.opts.MaxRetries + 1
	attempt := 0
	var err error
	for {
		attempt++
		if err = j.run(); err == nil {
			attrs := append(j.attrs(), slog.Int("elapsed_ms", durationToMS(time.Since(start))))
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempt", attempt))
			}
			logger.Debug(ctx, logger.CompSender, "send.success", attrs...)
			return attempt, nil
		}

		delay, ok := d.retryDelay(err, attempt)
		if !ok || attempt == maxAttempts {
			break
		}
		logger.Debug(ctx, logger.CompSender, "send.retry.backoff",
			append(j.attrs(), slog.Int("attempt", attempt), slog.Duration("delay", delay))...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
			continue
		}
		break
	}

	logger.Error(ctx, logger.CompSender, "send.fail",
		append(j.attrs(),
			slog.String("error", Sanitize(err)),
			slog.String("error_kind", Classify(err)),
			slog.Int("attempts", attempt),
			slog.Int("elapsed_ms", durationToMS(time.Since(start))),
		)...,
	)
	return attempt, err
}

// retryDelay reports whether err may be retried and after how long. Flood
// errors are honoured with the wait Telegram asked for.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	backoff := d.opts.RetryBackoff * time.Duration(attempt)
	if wait, ok := floodWait(err); ok {
		return max(wait, backoff), true
	}
	return backoff, netutil.ShouldRetry(err)
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}
