package failover

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/provider/cloudflare"
)

// DefaultTTL is the TTL written with every failover update.
const DefaultTTL = 60

// Result describes what a MaybeRotate call did.
type Result string

const (
	Skipped      Result = ""
	LookupFailed Result = "lookup_failed"
	UpdateFailed Result = "update_failed"
	Rotated      Result = "rotated"
)

// Provider is the part of the DNS API the controller needs.
type Provider interface {
	FindRecordID(ctx context.Context, name string) (string, error)
	UpdateDNSRecord(ctx context.Context, recordID string, record cloudflare.DNSRecord) (*cloudflare.DNSRecord, error)
}

type Recorder interface {
	ObserveRotation(target string, result string)
}

type Options struct {
	TTL int
	// RevertOnUpdateFailure restores the previous pool order when the DNS
	// update is rejected. Off by default: the pointer stays advanced.
	RevertOnUpdateFailure bool
	Recorder              Recorder
}

// Controller owns the rotation state of a single target.
type Controller struct {
	target string
	domain string
	zoneID string
	pool   *Rotation
	dns    Provider
	logger *zap.Logger
	opts   Options

	// rotating serializes lookup, advance and update for this target.
	rotating sync.Mutex
}

func NewController(target string, f *domain.Failover, dns Provider, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Controller{
		target: target,
		domain: f.Domain,
		zoneID: f.ZoneID,
		pool:   NewRotation(f.Candidates),
		dns:    dns,
		logger: logger.With(zap.String("target", target), zap.String("domain", f.Domain)),
		opts:   opts,
	}
}

// Snapshot is safe to call while a rotation is in flight. A nil controller
// reports failover as disabled.
func (c *Controller) Snapshot() domain.PoolSnapshot {
	if c == nil {
		return domain.PoolSnapshot{}
	}
	return c.pool.Snapshot()
}

func (c *Controller) Candidates() []string {
	if c == nil {
		return nil
	}
	return c.pool.Candidates()
}

// MaybeRotate switches the managed CNAME to the next candidate when out is
// down. It is a no-op for up outcomes, nil controllers and empty pools.
func (c *Controller) MaybeRotate(ctx context.Context, out domain.Outcome) (Result, error) {
	if c == nil || out.IsUp() || c.dns == nil || c.pool.Len() == 0 {
		return Skipped, nil
	}

	c.rotating.Lock()
	defer c.rotating.Unlock()

	recordID, err := c.dns.FindRecordID(ctx, c.domain)
	if err != nil {
		c.logger.Error("dns_lookup_failed",
			zap.String("zone_id", c.zoneID),
			zap.Error(err),
		)
		c.observe(LookupFailed)
		return LookupFailed, fmt.Errorf("%w: %s: %v", domain.ErrDNSLookupFailure, c.domain, err)
	}

	previous := c.pool.Candidates()
	newCNAME := c.pool.Advance()

	if _, err := c.dns.UpdateDNSRecord(ctx, recordID, cloudflare.CNAME(c.domain, newCNAME, c.opts.TTL)); err != nil {
		if c.opts.RevertOnUpdateFailure {
			c.pool.restore(previous)
		}
		c.logger.Error("dns_update_failed",
			zap.String("zone_id", c.zoneID),
			zap.String("record_id", recordID),
			zap.String("cname", newCNAME),
			zap.Bool("reverted", c.opts.RevertOnUpdateFailure),
			zap.Error(err),
		)
		c.observe(UpdateFailed)
		return UpdateFailed, fmt.Errorf("%w: %s -> %s: %v", domain.ErrDNSUpdateFailure, c.domain, newCNAME, err)
	}

	c.logger.Warn("cname_rotated",
		zap.String("from", previous[0]),
		zap.String("to", newCNAME),
		zap.String("record_id", recordID),
	)
	c.observe(Rotated)
	return Rotated, nil
}

func (c *Controller) observe(r Result) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.ObserveRotation(c.target, string(r))
	}
}
