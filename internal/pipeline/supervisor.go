package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
)

// ErrDraining is returned by Reserve once Drain has started.
var ErrDraining = fmt.Errorf("%w: shutting down", domain.ErrBusy)

// Runner executes a job to a terminal state.
type Runner interface {
	Run(ctx context.Context, job *domain.Job) error
}

// Supervisor starts runs in the background, bounds how many are in flight
// and drains them on shutdown.
type Supervisor struct {
	runner   Runner
	sem      *semaphore.Weighted
	logger   infra.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight atomic.Int64

	mu       sync.Mutex
	draining bool
}

func NewSupervisor(runner Runner, maxInFlight int, logger infra.Logger) *Supervisor {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(maxInFlight)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Reservation holds one run slot. Submit consumes it; Release returns an
// unused slot.
type Reservation struct {
	s    *Supervisor
	once sync.Once
}

// Reserve claims a run slot without blocking. Callers reserve before creating
// the job record so a busy service rejects requests without leaving records behind.
func (s *Supervisor) Reserve() (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return nil, ErrDraining
	}
	if !s.sem.TryAcquire(1) {
		return nil, domain.ErrBusy
	}
	s.wg.Add(1)
	return &Reservation{s: s}, nil
}

func (r *Reservation) Release() {
	r.once.Do(func() {
		r.s.sem.Release(1)
		r.s.wg.Done()
	})
}

// Submit starts the run and returns immediately.
func (r *Reservation) Submit(job *domain.Job) *Handle {
	h := &Handle{jobID: job.ID, done: make(chan struct{})}
	started := false
	r.once.Do(func() {
		started = true
		r.s.start(job, h)
	})
	if !started {
		h.err = fmt.Errorf("reservation already used for job %s", job.ID)
		close(h.done)
	}
	return h
}

// Submit reserves a slot and starts the run.
func (s *Supervisor) Submit(job *domain.Job) (*Handle, error) {
	res, err := s.Reserve()
	if err != nil {
		return nil, err
	}
	return res.Submit(job), nil
}

func (s *Supervisor) start(job *domain.Job, h *Handle) {
	s.inFlight.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("run of job %s panicked: %v", job.ID, r)
				s.logger.Error().Str("job_id", job.ID).Interface("panic", r).Msg("supervisor: run panicked")
			}
			s.inFlight.Add(-1)
			s.sem.Release(1)
			s.wg.Done()
			close(h.done)
		}()
		h.err = s.runner.Run(s.ctx, job)
	}()
}

// InFlight reports how many runs are active.
func (s *Supervisor) InFlight() int {
	return int(s.inFlight.Load())
}

// Drain stops accepting work and waits for active runs. When ctx expires
// first the remaining runs are cancelled, which fails them, and Drain waits
// for them to record that before returning ctx's error.
func (s *Supervisor) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.logger.Warn().Int("in_flight", s.InFlight()).Msg("supervisor: drain deadline reached, cancelling runs")
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Handle observes one submitted run.
type Handle struct {
	jobID string
	done  chan struct{}
	err   error
}

func (h *Handle) JobID() string { return h.jobID }

// Done is closed when the run reached a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the run's failure cause. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}
