package domain

import (
	"net"
	"strconv"
	"time"
)

type Target struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`

	PushToken   string `json:"-"`
	PushBaseURL string `json:"-"`

	// IntervalSeconds is the fast cadence. The confirmation cadence is derived from it.
	IntervalSeconds int `json:"interval_seconds"`

	// Failover is nil unless every failover field was configured.
	Failover *Failover `json:"failover,omitempty"`
}

type Failover struct {
	ZoneID     string   `json:"zone_id"`
	Token      string   `json:"-"`
	Domain     string   `json:"domain"`
	Candidates []string `json:"candidates"`
}

func (t *Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t *Target) FastInterval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// ConfirmInterval returns 5*fast-30 seconds; ok is false when that is below one second.
func (t *Target) ConfirmInterval() (time.Duration, bool) {
	return ConfirmInterval(t.IntervalSeconds)
}

func ConfirmInterval(fastSeconds int) (time.Duration, bool) {
	secs := 5*fastSeconds - 30
	if secs < 1 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// NewFailover returns nil unless zone, token, domain and at least one candidate are set.
func NewFailover(zoneID, token, domain string, candidates []string) *Failover {
	if zoneID == "" || token == "" || domain == "" || len(candidates) == 0 {
		return nil
	}
	c := make([]string, len(candidates))
	copy(c, candidates)
	return &Failover{ZoneID: zoneID, Token: token, Domain: domain, Candidates: c}
}

// PoolSnapshot is a read-only view of a rotation pool for status messages.
type PoolSnapshot struct {
	Enabled bool   `json:"enabled"`
	Current string `json:"current,omitempty"`
	Next    string `json:"next,omitempty"`
}

const NoCandidate = "none"

type CheckResult struct {
	Target    string    `json:"target"`
	Up        bool      `json:"up"`
	LatencyMS int64     `json:"latency_ms"`
	Failure   string    `json:"failure,omitempty"`
	Status    string    `json:"status"`
	Pushed    bool      `json:"pushed"`
	Rotation  string    `json:"rotation,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
