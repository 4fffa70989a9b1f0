package failover

import (
	"sync"

	"github.com/hamed0406/pushfailover/internal/domain"
)

// Rotation is a circular pool of candidate CNAMEs. The front is the candidate
// currently in use.
type Rotation struct {
	mu   sync.RWMutex
	pool []string
}

func NewRotation(candidates []string) *Rotation {
	p := make([]string, len(candidates))
	copy(p, candidates)
	return &Rotation{pool: p}
}

func (r *Rotation) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pool)
}

// Candidates returns a copy of the pool in rotation order.
func (r *Rotation) Candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.pool))
	copy(out, r.pool)
	return out
}

func (r *Rotation) Snapshot() domain.PoolSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := domain.PoolSnapshot{Enabled: len(r.pool) > 0, Current: domain.NoCandidate, Next: domain.NoCandidate}
	if len(r.pool) > 0 {
		s.Current = r.pool[0]
	}
	if len(r.pool) > 1 {
		s.Next = r.pool[1]
	}
	return s
}

// Advance moves the front candidate to the back and returns the new front.
func (r *Rotation) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pool) == 0 {
		return ""
	}
	head := r.pool[0]
	r.pool = append(r.pool[1:], head)
	return r.pool[0]
}

// restore puts back an order previously returned by Candidates.
func (r *Rotation) restore(order []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = order
}
