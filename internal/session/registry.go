// Package session tracks per-user conversational state: reply cooldowns,
// dialog grace windows and the per-user gate that keeps a single reply
// pipeline in flight per user.
package session

import (
	"log"
	"sync"
	"time"
)

const (
	// Cooldown is the minimum spacing between replies to one user.
	Cooldown = 5 * time.Second
	// DialogGrace is how long non-direct follow-ups still qualify after a
	// direct mention.
	DialogGrace = 240 * time.Second
	// MaxIdle is the inactivity age after which the reaper drops a user's
	// transient state.
	MaxIdle = 24 * time.Hour
	// ReapInterval is how often the reaper runs.
	ReapInterval = time.Hour
)

// Registry owns the three per-user maps. Every access goes through its
// mutex; gates are created lazily inside the critical section.
type Registry struct {
	mu          sync.Mutex
	lastReply   map[string]time.Time
	dialogUntil map[string]time.Time
	gates       map[string]*sync.Mutex

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		lastReply:   make(map[string]time.Time),
		dialogUntil: make(map[string]time.Time),
		gates:       make(map[string]*sync.Mutex),
		now:         time.Now,
	}
}

// ExtendDialog re-arms the user's grace window. Called on every direct
// mention.
func (r *Registry) ExtendDialog(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogUntil[userID] = r.now().Add(DialogGrace)
}

// DialogActive reports whether a non-direct message still falls inside the
// user's grace window.
func (r *Registry) DialogActive(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.now().After(r.dialogUntil[userID])
}

// InCooldown reports whether it is too soon after the last reply to answer
// again.
func (r *Registry) InCooldown(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastReply[userID]
	if !ok {
		return false
	}
	return r.now().Sub(last) < Cooldown
}

// MarkReplied records a successful delivery for cooldown accounting.
func (r *Registry) MarkReplied(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReply[userID] = r.now()
}

// Gate returns the user's reply gate, creating it on first use. The caller
// locks it for the duration of one reply pipeline; different users' gates
// are independent.
func (r *Registry) Gate(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[userID]
	if !ok {
		g = &sync.Mutex{}
		r.gates[userID] = g
	}
	return g
}

// Reap drops state for users inactive longer than MaxIdle. A gate that is
// currently held belongs to an in-flight pipeline and is left alone, along
// with the rest of that user's entries.
func (r *Registry) Reap() int {
	threshold := r.now().Add(-MaxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.lastReply))
	for uid := range r.lastReply {
		seen[uid] = struct{}{}
	}
	for uid := range r.dialogUntil {
		seen[uid] = struct{}{}
	}
	for uid := range r.gates {
		seen[uid] = struct{}{}
	}

	removed := 0
	for uid := range seen {
		if last, ok := r.lastReply[uid]; ok && !last.Before(threshold) {
			continue
		}
		// A user with no reply on record is stale once the dialog window
		// is far behind the threshold too.
		if until, ok := r.dialogUntil[uid]; ok && until.After(threshold) {
			continue
		}
		if g, ok := r.gates[uid]; ok {
			if !g.TryLock() {
				continue
			}
			g.Unlock()
			delete(r.gates, uid)
		}
		delete(r.lastReply, uid)
		delete(r.dialogUntil, uid)
		removed++
	}
	if removed > 0 {
		log.Printf("[session] cleaned up %d inactive users", removed)
	}
	return removed
}
