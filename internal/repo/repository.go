package repo

import (
	"context"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// ResultStore keeps the outcome of every check cycle. Swap in any DB adapter.
type ResultStore interface {
	Append(ctx context.Context, r *domain.CheckResult) error
	// Latest returns the newest result per target.
	Latest(ctx context.Context) ([]domain.CheckResult, error)
	// History returns up to limit results for one target, newest first.
	History(ctx context.Context, target string, limit int) ([]domain.CheckResult, error)
}
