package domain

import "time"

type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureTimeout FailureKind = "timeout"
	FailureRefused FailureKind = "refused"
	FailureResolve FailureKind = "resolve"
	FailureError   FailureKind = "error"
)

// Outcome is the result of a single reachability probe.
type Outcome struct {
	LatencyMS int64       `json:"latency_ms"`
	Failure   FailureKind `json:"failure,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

func Up(latencyMS int64) Outcome {
	if latencyMS < 0 {
		latencyMS = 0
	}
	return Outcome{LatencyMS: latencyMS, CheckedAt: time.Now().UTC()}
}

func Down(kind FailureKind, detail string) Outcome {
	if kind == FailureNone {
		kind = FailureError
	}
	return Outcome{LatencyMS: -1, Failure: kind, Detail: detail, CheckedAt: time.Now().UTC()}
}

func (o Outcome) IsUp() bool { return o.Failure == FailureNone }

// Ping is the value reported upstream: latency in ms, or -1 when down.
func (o Outcome) Ping() int64 {
	if !o.IsUp() {
		return -1
	}
	return o.LatencyMS
}
