package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
)

var (
	ErrUnknownTarget  = errors.New("unknown target")
	ErrDuplicateCycle = errors.New("target already scheduled")
	ErrRunning        = errors.New("runtime already running")
)

// Runtime drives every target's fast and confirmation jobs on one gocron
// scheduler. Each job runs in its own goroutine.
type Runtime struct {
	logger *zap.Logger
	sched  *gocron.Scheduler

	mu      sync.RWMutex
	cycles  map[string]*Cycle
	running bool
}

func NewRuntime(logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		logger: logger,
		sched:  gocron.NewScheduler(time.UTC),
		cycles: make(map[string]*Cycle),
	}
}

// Add registers a cycle. Jobs are created when Run starts.
func (r *Runtime) Add(c *Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}
	if _, ok := r.cycles[c.Target.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCycle, c.Target.Name)
	}
	r.cycles[c.Target.Name] = c
	return nil
}

// Cycles returns the registered cycles ordered by target name.
func (r *Runtime) Cycles() []*Cycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Cycle, 0, len(r.cycles))
	for _, c := range r.cycles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target.Name < out[j].Target.Name })
	return out
}

// Run schedules all jobs, starts them and blocks until ctx is cancelled.
// The fast job fires immediately; the confirmation job waits for its first
// interval. Jobs observe ctx, so in-flight calls abort on shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunning
	}
	r.running = true
	r.mu.Unlock()

	var errs error
	for _, c := range r.Cycles() {
		errs = multierr.Append(errs, r.schedule(ctx, c))
	}
	if errs != nil {
		r.sched.Clear()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return errs
	}

	r.sched.StartAsync()
	r.logger.Info("scheduler_started", zap.Int("jobs", r.sched.Len()))

	<-ctx.Done()
	r.sched.Stop()
	r.logger.Info("scheduler_stopped")
	return nil
}

func (r *Runtime) schedule(ctx context.Context, c *Cycle) error {
	t := c.Target
	if t.IntervalSeconds < 1 {
		return fmt.Errorf("%s: fast interval must be at least 1s, got %d", t.Name, t.IntervalSeconds)
	}
	run := func() { c.Run(ctx) }

	if _, err := r.sched.Every(t.IntervalSeconds).Seconds().Tag(t.Name, "fast").Do(run); err != nil {
		return fmt.Errorf("%s: schedule fast job: %w", t.Name, err)
	}

	confirm, ok := t.ConfirmInterval()
	if !ok {
		r.logger.Info("confirmation_disabled",
			zap.String("target", t.Name),
			zap.Int("interval_seconds", t.IntervalSeconds),
		)
		return nil
	}
	if _, err := r.sched.Every(confirm).WaitForSchedule().Tag(t.Name, "confirm").Do(run); err != nil {
		return fmt.Errorf("%s: schedule confirmation job: %w", t.Name, err)
	}
	r.logger.Info("target_scheduled",
		zap.String("target", t.Name),
		zap.Duration("fast", t.FastInterval()),
		zap.Duration("confirm", confirm),
		zap.Bool("failover", t.Failover != nil),
	)
	return nil
}

// RunOnce runs the named target's cycle now, outside its schedule.
func (r *Runtime) RunOnce(ctx context.Context, name string) (domain.CheckResult, error) {
	r.mu.RLock()
	c, ok := r.cycles[name]
	r.mu.RUnlock()
	if !ok {
		return domain.CheckResult{}, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return c.Run(ctx), nil
}
