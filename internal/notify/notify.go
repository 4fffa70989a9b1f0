package notify

import (
	"context"
	"fmt"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// Reporter sends one check outcome upstream. Errors are for logging only;
// callers never abort a cycle because of them.
type Reporter interface {
	Report(ctx context.Context, t *domain.Target, out domain.Outcome, pool domain.PoolSnapshot) (Receipt, error)
}

// Receipt is what the push endpoint answered.
type Receipt struct {
	StatusCode int
	Body       string
}

// StatusLine is the human-readable status sent with every report.
func StatusLine(out domain.Outcome, pool domain.PoolSnapshot) string {
	if out.IsUp() {
		return "up"
	}
	if !pool.Enabled {
		return "down"
	}
	return fmt.Sprintf("down, switching CNAME, current: %s, next: %s", pool.Current, pool.Next)
}

func Message(out domain.Outcome) string {
	if out.IsUp() {
		return "OK"
	}
	if out.Detail == "" {
		return string(out.Failure)
	}
	return string(out.Failure) + ": " + out.Detail
}
