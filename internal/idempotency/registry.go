// Package idempotency implements the process-wide admission registry that
// protects trip creation from duplicate execution under client retries.
//
// The registry is in-memory only: it does not survive a process restart and
// is not shared across instances. A multi-instance deployment would back the
// same admit/expire contract with a shared store; the Registry type is the
// seam where that implementation would slot in.
package idempotency

import (
	"sync"
	"time"
)

// Registry maps client-supplied request tokens to expiry instants.
// It is safe for concurrent use by arbitrarily many callers.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time

	done      chan struct{}
	closeOnce sync.Once

	// now is swappable in tests.
	now func() time.Time
}

// NewRegistry constructs a Registry and starts a background sweeper that
// removes expired entries every sweepInterval. Call Close to stop it.
func NewRegistry(sweepInterval time.Duration) *Registry {
	r := &Registry{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go r.sweepLoop(sweepInterval)
	return r
}

// TryAdmit records token with expiry now+ttl and returns true exactly when
// the token was not already present and unexpired. Admission is atomic:
// of any number of concurrent callers with the same token, exactly one
// observes true. An entry whose expiry has passed is treated as absent and
// the token is re-admitted with a fresh window.
func (r *Registry) TryAdmit(token string, ttl time.Duration) bool {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if expiry, ok := r.entries[token]; ok && now.Before(expiry) {
		return false
	}
	r.entries[token] = now.Add(ttl)
	return true
}

// Release removes token so it can be admitted again immediately. Callers use
// it to hand a token back when the operation it admitted never committed:
// a token marks a completed request, not an attempted one. Releasing an
// unknown token is a no-op.
func (r *Registry) Release(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// Len returns the number of recorded entries, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// sweepLoop periodically removes expired entries until Close is called.
func (r *Registry) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep removes only entries whose expiry has passed, so a token rejected as
// a duplicate can never be readmitted while its original window is open.
func (r *Registry) sweep() {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for token, expiry := range r.entries {
		if !now.Before(expiry) {
			delete(r.entries, token)
		}
	}
}
