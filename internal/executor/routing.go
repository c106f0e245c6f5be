package executor

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultCooldown is how long a key sits out after a retryable error.
const defaultCooldown = 30 * time.Second

// CredentialRouter rotates through a fixed set of API keys. Selection
// is round-robin via an atomic index; keys that recently failed sit in
// a per-key cooldown.
type CredentialRouter struct {
	keys     []string
	cooldown time.Duration
	index    atomic.Uint64

	mu        sync.Mutex
	deadlines []time.Time

	now func() time.Time
}

// NewCredentialRouter builds a router over keys. A zero cooldown
// means the default 30 s.
func NewCredentialRouter(keys []string, cooldown time.Duration) *CredentialRouter {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &CredentialRouter{
		keys:      keys,
		cooldown:  cooldown,
		deadlines: make([]time.Time, len(keys)),
		now:       time.Now,
	}
}

// NextKey returns the next usable key, skipping keys in cooldown. The
// second return is false when every key is cooling down.
func (r *CredentialRouter) NextKey() (string, bool) {
	if len(r.keys) == 0 {
		return "", false
	}
	start := int(r.index.Add(1)-1) % len(r.keys)

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for i := 0; i < len(r.keys); i++ {
		idx := (start + i) % len(r.keys)
		if !now.Before(r.deadlines[idx]) {
			return r.keys[idx], true
		}
	}
	return "", false
}

// MarkError puts a key into cooldown.
func (r *CredentialRouter) MarkError(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range r.keys {
		if k == key {
			r.deadlines[i] = r.now().Add(r.cooldown)
			return
		}
	}
}

// ClearCooldown resets a key's cooldown deadline.
func (r *CredentialRouter) ClearCooldown(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range r.keys {
		if k == key {
			r.deadlines[i] = time.Time{}
			return
		}
	}
}
