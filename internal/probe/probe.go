package probe

import (
	"context"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// Prober performs a single bounded connectivity check. Implementations never
// return errors: every failure is reported as a down Outcome.
type Prober interface {
	Probe(ctx context.Context, host string, port int) domain.Outcome
}
