package ledger

import (
	"sort"
	"sync"
)

// Lanes serialises work per key: at most one holder per key at a time. A
// key's lane lives only while it is held or awaited.
//
// A nil *Lanes hands out no-op locks, which disables serialisation.
type Lanes struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func NewLanes() *Lanes {
	return &Lanes{lanes: make(map[string]*lane)}
}

// Lock acquires the lanes of all keys and returns the function releasing
// them. Keys are taken in sorted order so two callers locking overlapping
// sets cannot deadlock.
func (l *Lanes) Lock(keys ...string) (unlock func()) {
	if l == nil {
		return func() {}
	}
	keys = uniqueSorted(keys)
	held := make([]*lane, 0, len(keys))
	for _, key := range keys {
		ln := l.acquire(key)
		ln.mu.Lock()
		held = append(held, ln)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(keys[i])
			}
		})
	}
}

// Active returns the number of lanes currently held or awaited.
func (l *Lanes) Active() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func (l *Lanes) acquire(key string) *lane {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
	}
	ln.refs++
	return ln
}

func (l *Lanes) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln := l.lanes[key]
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, key)
	}
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
