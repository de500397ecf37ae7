package session

import (
	"context"
	"sync"
	"time"

	"github.com/gemcraft/storefront/internal/models"
)

// Session tracks an active login independently of the token's own expiry, so
// a login can be revoked server-side before the signed token ages out.
type Session struct {
	ID           string      `json:"id"`
	UserID       uint        `json:"userId"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	LastActivity time.Time   `json:"lastActivity"`
}

type Store interface {
	Create(ctx context.Context, s Session) error
	// Validate reports whether the session is live and refreshes its
	// sliding-expiry timestamp when it is.
	Validate(ctx context.Context, id string) (Session, bool)
	Invalidate(ctx context.Context, id string) error
	InvalidateUser(ctx context.Context, userID uint) error
}

// Registry is the in-process Store. State lives and dies with the process and
// is not shared across instances; multi-process deployments use RedisStore.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
	done     chan struct{}
	closed   sync.Once
}

func NewRegistry(ttl, sweepEvery time.Duration) *Registry {
	r := &Registry{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go r.sweepLoop(sweepEvery)
	return r
}

func (r *Registry) Create(_ context.Context, s Session) error {
	if s.LastActivity.IsZero() {
		s.LastActivity = r.now()
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return nil
}

func (r *Registry) Validate(_ context.Context, id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	if r.now().Sub(s.LastActivity) > r.ttl {
		delete(r.sessions, id)
		return Session{}, false
	}
	s.LastActivity = r.now()
	r.sessions[id] = s
	return s, true
}

func (r *Registry) Invalidate(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) InvalidateUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Close() {
	r.closed.Do(func() { close(r.done) })
}

func (r *Registry) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}

func (r *Registry) sweep() {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
}
