package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// DefaultHistory is how many results are kept per target.
const DefaultHistory = 500

type Store struct {
	mu      sync.RWMutex
	keep    int
	latest  map[string]domain.CheckResult
	history map[string][]domain.CheckResult
}

func New(keep int) *Store {
	if keep <= 0 {
		keep = DefaultHistory
	}
	return &Store{
		keep:    keep,
		latest:  make(map[string]domain.CheckResult),
		history: make(map[string][]domain.CheckResult),
	}
}

func (m *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.latest[r.Target]; !ok || !r.CheckedAt.Before(cur.CheckedAt) {
		m.latest[r.Target] = *r
	}
	h := append(m.history[r.Target], *r)
	if len(h) > m.keep {
		h = h[len(h)-m.keep:]
	}
	m.history[r.Target] = h
	return nil
}

func (m *Store) Latest(ctx context.Context) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CheckResult, 0, len(m.latest))
	for _, r := range m.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out, nil
}

func (m *Store) History(ctx context.Context, target string, limit int) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[target]
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	out := make([]domain.CheckResult, 0, limit)
	for i := len(h) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h[i])
	}
	return out, nil
}
