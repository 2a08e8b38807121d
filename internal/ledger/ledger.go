// Package ledger tracks which substitutions have already been alerted on, so
// repeated polls of the same game state never re-deliver an alert.
package ledger

import (
	"sync"
)

// Ledger is a process-lifetime set of admitted substitution keys. There is
// no eviction: a game's pitcher roster is bounded and the process restarts
// daily, so growth is acceptable.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Contains reports whether key has been admitted.
func (l *Ledger) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok
}

// AdmitOnce is the atomic check-then-insert: it records key and reports
// whether this call was the one that admitted it. Concurrent callers racing
// on the same key see exactly one true.
func (l *Ledger) AdmitOnce(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Size returns the number of admitted keys.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
