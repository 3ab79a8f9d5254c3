package tryon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second
)

var errDeadline = errors.New("tryon: polling deadline elapsed")

// StatusSource returns the normalized status of a submitted job.
type StatusSource interface {
	Status(ctx context.Context, eventID string) (ProviderResult, error)
}

// Outcome is the single terminal report of a polling task.
type Outcome struct {
	JobID  string
	Status domain.JobStatus
	Result *domain.ResultImage
	Polls  int
	Err    error
}

// Job renders the outcome as the job it terminated.
func (o Outcome) Job() domain.TryOnJob {
	return domain.TryOnJob{JobID: o.JobID, Status: o.Status, Result: o.Result}
}

// PollerOptions tunes cadence and deadline. Zero values use the defaults.
type PollerOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *infra.Logger
}

// Poller queries a StatusSource on a fixed cadence until the job settles or the
// deadline passes.
type Poller struct {
	source   StatusSource
	interval time.Duration
	timeout  time.Duration
	logger   *infra.Logger
}

func NewPoller(source StatusSource, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Poller{source: source, interval: interval, timeout: timeout, logger: logger}
}

// Task is one running poll loop. It owns both the cadence ticker and the
// deadline; Cancel stops both and the outcome is reported exactly once.
type Task struct {
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}

	once    sync.Once
	outcome Outcome
}

// Start begins polling jobID. The deadline counts from this call. Cancelling
// parent has the same effect as Task.Cancel.
func (p *Poller) Start(parent context.Context, jobID string) *Task {
	ctx, cancel := context.WithTimeoutCause(parent, p.timeout, errDeadline)
	t := &Task{jobID: jobID, cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, t)
	return t
}

// Poll is Start followed by Wait.
func (p *Poller) Poll(ctx context.Context, jobID string) Outcome {
	return p.Start(ctx, jobID).Wait()
}

func (p *Poller) run(ctx context.Context, t *Task) {
	defer close(t.done)
	defer t.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := p.logger.With().Str("event_id", t.jobID).Logger()
	polls := 0
	for {
		select {
		case <-ctx.Done():
			t.finish(p.interrupted(ctx, t.jobID, polls))
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			continue
		}

		polls++
		res, err := p.source.Status(ctx, t.jobID)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Warn().Err(err).Int("poll", polls).Msg("tryon: status poll failed")
			t.finish(Outcome{
				JobID:  t.jobID,
				Status: domain.JobStatusFailed,
				Polls:  polls,
				Err:    fmt.Errorf("tryon: poll %s: %w", t.jobID, err),
			})
			return
		}

		status, image := res.Classify()
		log.Debug().
			Int("poll", polls).
			Str("provider_status", res.Status).
			Str("status", string(status)).
			Msg("tryon: status polled")

		switch status {
		case domain.JobStatusSucceeded:
			t.finish(Outcome{JobID: t.jobID, Status: status, Result: image, Polls: polls})
			return
		case domain.JobStatusFailed:
			t.finish(Outcome{JobID: t.jobID, Status: status, Polls: polls, Err: domain.ErrTryOnFailed})
			return
		}
	}
}

func (p *Poller) interrupted(ctx context.Context, jobID string, polls int) Outcome {
	cause := context.Cause(ctx)
	if errors.Is(cause, errDeadline) {
		p.logger.Warn().Str("event_id", jobID).Int("polls", polls).Dur("after", p.timeout).Msg("tryon: polling timed out")
		return Outcome{
			JobID:  jobID,
			Status: domain.JobStatusTimedOut,
			Polls:  polls,
			Err:    &domain.TimeoutError{JobID: jobID, After: p.timeout},
		}
	}
	return Outcome{JobID: jobID, Status: domain.JobStatusCanceled, Polls: polls, Err: cause}
}

func (t *Task) finish(o Outcome) {
	t.once.Do(func() { t.outcome = o })
}

// Done is closed once the outcome is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task settles and returns its outcome. Repeated calls
// return the same outcome.
func (t *Task) Wait() Outcome {
	<-t.done
	return t.outcome
}

// Cancel stops polling and waits for the loop to exit. Cancelling a settled
// task is a no-op.
func (t *Task) Cancel() {
	t.cancel()
	<-t.done
}
