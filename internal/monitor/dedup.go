// Package monitor implements the clipboard/focus polling loop.
package monitor

import "github.com/clipguard/clipguard/internal/domain"

// maxDedupEntries caps the suppression set. The set is cleared on
// every new copy, so the cap only matters in a pathological session
// with heavy app churn and no copies; overflow clears in full, which
// at worst repeats a warning.
const maxDedupEntries = 256

// dedupTracker suppresses repeat warnings for (source, dest) pairs
// until new clipboard content invalidates them. Owned solely by the
// monitor loop; no locking needed.
type dedupTracker struct {
	keys map[domain.DedupKey]struct{}
}

func newDedupTracker() *dedupTracker {
	return &dedupTracker{keys: make(map[domain.DedupKey]struct{})}
}

// shouldWarn reports whether a warning for key has not been emitted
// since the last copy, inserting the key when absent.
func (t *dedupTracker) shouldWarn(key domain.DedupKey) bool {
	if _, seen := t.keys[key]; seen {
		return false
	}
	if len(t.keys) >= maxDedupEntries {
		t.clear()
	}
	t.keys[key] = struct{}{}
	return true
}

// clear drops all suppression state. Called when a new clipboard
// revision is observed.
func (t *dedupTracker) clear() {
	t.keys = make(map[domain.DedupKey]struct{})
}

func (t *dedupTracker) len() int {
	return len(t.keys)
}
