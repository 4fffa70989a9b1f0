package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/failover"
	"github.com/hamed0406/pushfailover/internal/notify"
	"github.com/hamed0406/pushfailover/internal/probe"
	"github.com/hamed0406/pushfailover/internal/repo"
)

// DefaultCycleTimeout bounds one full probe, report and failover pass.
const DefaultCycleTimeout = 60 * time.Second

// Observer receives per-cycle measurements.
type Observer interface {
	ObserveCheck(target string, out domain.Outcome)
	ObservePushFailure(target string)
}

// Cycle runs the check pipeline for one target. The same Cycle is shared by
// the fast and the confirmation job; it keeps no per-run state itself.
type Cycle struct {
	Target   *domain.Target
	Prober   probe.Prober
	Reporter notify.Reporter
	// Failover is nil when the target has no candidate pool.
	Failover *failover.Controller
	Results  repo.ResultStore
	Metrics  Observer
	Logger   *zap.Logger
	Timeout  time.Duration
}

// Run probes the target, reports the outcome, rotates the CNAME when the
// target is down and records the result. Failures of any step are logged and
// never stop the remaining steps.
func (c *Cycle) Run(ctx context.Context) domain.CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCycleTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := c.logger()
	t := c.Target

	out := c.Prober.Probe(cctx, t.Host, t.Port)
	if !out.IsUp() {
		log.Warn("probe_failed",
			zap.String("addr", t.Addr()),
			zap.String("failure", string(out.Failure)),
			zap.String("detail", out.Detail),
		)
	}
	if c.Metrics != nil {
		c.Metrics.ObserveCheck(t.Name, out)
	}

	pool := c.Failover.Snapshot()
	status := notify.StatusLine(out, pool)

	pushed := true
	if _, err := c.Reporter.Report(cctx, t, out, pool); err != nil {
		pushed = false
		log.Error("push_failed", zap.Error(err))
		if c.Metrics != nil {
			c.Metrics.ObservePushFailure(t.Name)
		}
	}

	rotation, err := c.Failover.MaybeRotate(cctx, out)
	if err != nil && !errors.Is(err, domain.ErrDNSLookupFailure) && !errors.Is(err, domain.ErrDNSUpdateFailure) {
		log.Error("failover_error", zap.Error(err))
	}

	res := domain.CheckResult{
		Target:    t.Name,
		Up:        out.IsUp(),
		LatencyMS: out.Ping(),
		Failure:   string(out.Failure),
		Status:    status,
		Pushed:    pushed,
		Rotation:  string(rotation),
		CheckedAt: out.CheckedAt,
	}
	if res.CheckedAt.IsZero() {
		res.CheckedAt = time.Now().UTC()
	}
	if c.Results != nil {
		if err := c.Results.Append(cctx, &res); err != nil {
			log.Warn("result_append_error", zap.Error(err))
		}
	}

	log.Debug("cycle_done",
		zap.Bool("up", res.Up),
		zap.Int64("ping", res.LatencyMS),
		zap.Bool("pushed", pushed),
		zap.String("rotation", res.Rotation),
	)
	return res
}

func (c *Cycle) logger() *zap.Logger {
	l := c.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("target", c.Target.Name))
}
