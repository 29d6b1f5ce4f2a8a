// Package threadreg implements the bridge's thread registry and per-thread
// GC-root tracking. Every task worker goroutine registers itself on entry
// and unregisters on exit so that an external GC collaborator can be told
// which goroutines are carrying live root pointers. The pattern layer's
// pool workers do not register.
//
// The source runtime keeps an intrusive singly-linked list of thread
// descriptors with an atomic head. That is replaced here with an owned
// concurrent map keyed by goroutine id — removal then never needs to walk
// a list under a global lock.
package threadreg

import (
	"sync"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/internal/gid"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// GCRootSink is the external GC collaborator's view of root release. The
// bridge core never allocates or scans memory itself (out of scope, spec
// §1); it only tells the sink which roots a thread held at unregister time.
type GCRootSink interface {
	Release(roots []any)
}

type noopSink struct{}

func (noopSink) Release([]any) {}

// Descriptor is a single registered thread's state.
type Descriptor struct {
	ThreadID     int64
	registeredAt time.Time
	mu           sync.Mutex
	roots        []any
}

// Roots returns a snapshot of currently registered GC roots.
func (d *Descriptor) Roots() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]any, len(d.roots))
	copy(out, d.roots)
	return out
}

// RegisteredAt returns when the thread was registered.
func (d *Descriptor) RegisteredAt() time.Time { return d.registeredAt }

// Registry is the process-wide thread registry.
type Registry struct {
	mu    sync.Mutex
	byID  map[int64]*Descriptor
	sink  GCRootSink
	stats *stats.Stats
}

// New creates a registry reporting into the given stats block. A nil sink
// installs a no-op GC collaborator (used in tests and standalone demos
// where no real GC is wired in).
func New(s *stats.Stats, sink GCRootSink) *Registry {
	if sink == nil {
		sink = noopSink{}
	}
	return &Registry{
		byID:  make(map[int64]*Descriptor),
		sink:  sink,
		stats: s,
	}
}

// Register registers the calling goroutine. It is idempotent per thread:
// re-registering returns the existing descriptor without duplicating it.
func (r *Registry) Register() *Descriptor {
	id := gid.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byID[id]; ok {
		return d
	}

	d := &Descriptor{ThreadID: id, registeredAt: time.Now()}
	r.byID[id] = d
	if r.stats != nil {
		r.stats.ThreadsRegistered.Add(1)
	}
	return d
}

// Unregister releases all still-registered roots back to the GC
// collaborator and removes the calling goroutine's descriptor. Unregistering
// a goroutine that was never registered is a no-op.
func (r *Registry) Unregister() {
	id := gid.ID()

	r.mu.Lock()
	d, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	d.mu.Lock()
	roots := d.roots
	d.roots = nil
	d.mu.Unlock()

	if len(roots) > 0 {
		r.sink.Release(roots)
	}
	if r.stats != nil {
		r.stats.ThreadsRegistered.Add(-1)
		r.stats.GCRootsRegistered.Add(-int64(len(roots)))
	}
}

// Current returns the calling goroutine's descriptor, or nil if it is not
// registered.
func (r *Registry) Current() *Descriptor {
	id := gid.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// AddRoot appends a GC-root pointer to the calling goroutine's per-thread
// list. The backing slice grows by doubling, same as the source's growable
// root vector.
func (r *Registry) AddRoot(root any) bool {
	d := r.Current()
	if d == nil {
		return false
	}
	d.mu.Lock()
	if cap(d.roots) == len(d.roots) {
		grown := make([]any, len(d.roots), growCap(len(d.roots)))
		copy(grown, d.roots)
		d.roots = grown
	}
	d.roots = append(d.roots, root)
	d.mu.Unlock()
	if r.stats != nil {
		r.stats.GCRootsRegistered.Add(1)
	}
	return true
}

// RemoveRoot removes the first occurrence of root from the calling
// goroutine's list via swap-with-last, matching the source's O(1) removal.
func (r *Registry) RemoveRoot(root any) bool {
	d := r.Current()
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, got := range d.roots {
		if got == root {
			last := len(d.roots) - 1
			d.roots[i] = d.roots[last]
			d.roots = d.roots[:last]
			if r.stats != nil {
				r.stats.GCRootsRegistered.Add(-1)
			}
			return true
		}
	}
	return false
}

func growCap(n int) int {
	if n == 0 {
		return 4
	}
	return n * 2
}

// Count returns the number of currently registered threads.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Shutdown unregisters every remaining thread, releasing all roots. It is
// called from the bridge orchestrator's Cleanup.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		all = append(all, d)
	}
	r.byID = make(map[int64]*Descriptor)
	r.mu.Unlock()

	for _, d := range all {
		d.mu.Lock()
		roots := d.roots
		d.roots = nil
		d.mu.Unlock()
		if len(roots) > 0 {
			r.sink.Release(roots)
		}
	}
	if r.stats != nil {
		r.stats.ThreadsRegistered.Store(0)
	}
}
