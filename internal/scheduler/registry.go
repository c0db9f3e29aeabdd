// Package scheduler runs one autonomous call loop per auto-call counter.
package scheduler

import (
	"sync"
)

// Key identifies one (counter, tenant) scheduling pair.
type Key struct {
	CounterID int64
	TenantID  int64
}

// Registry maps scheduling pairs to their reset signals. A reset signal is a
// single-slot coalescing wake: any number of resets fired before the loop
// wakes collapse into exactly one early wake. The registry is owned by the
// Supervisor and handed to signal producers; keys are only added at startup.
type Registry struct {
	mu      sync.RWMutex
	signals map[Key]chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{signals: make(map[Key]chan struct{})}
}

// Register creates the signal for a pair and returns the receive side for
// the pair's loop. Registering an existing pair returns the same channel.
func (r *Registry) Register(key Key) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.signals[key]; ok {
		return ch
	}
	ch := make(chan struct{}, 1)
	r.signals[key] = ch
	return ch
}

// Reset fires the wake signal for a pair without blocking. It reports false
// when the pair has no registered loop (tenant without auto-call); firing a
// signal that is already pending is a no-op, which is what coalesces
// concurrent resets.
func (r *Registry) Reset(key Key) bool {
	r.mu.RLock()
	ch, ok := r.signals[key]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

// Keys returns all registered pairs.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.signals))
	for key := range r.signals {
		keys = append(keys, key)
	}
	return keys
}
