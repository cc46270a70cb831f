// Package asyncreq tracks asynchronous remote-control requests that have
// been accepted but not yet answered.
package asyncreq

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Capacity is the maximum number of outstanding asynchronous requests.
const Capacity = 32

// Tracker is a bounded registry of pending async ids. When full, the
// earliest-inserted id is evicted. Order is by first insertion: registering
// an id that is already present refreshes its time but not its position.
type Tracker struct {
	mu       sync.Mutex
	pending  *orderedmap.OrderedMap[string, time.Time]
	capacity int
	now      func() time.Time
}

// New creates an empty tracker holding at most Capacity entries.
func New() *Tracker {
	return &Tracker{
		pending:  orderedmap.New[string, time.Time](),
		capacity: Capacity,
		now:      time.Now,
	}
}

// Register records id as pending. If that pushes the tracker over capacity,
// the oldest entry is dropped and returned.
func (t *Tracker) Register(id string) (evicted string, didEvict bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending.Set(id, t.now())
	if t.pending.Len() <= t.capacity {
		return "", false
	}
	oldest := t.pending.Oldest()
	t.pending.Delete(oldest.Key)
	return oldest.Key, true
}

// Cancel forgets id. Unknown ids are ignored.
func (t *Tracker) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending.Delete(id)
}

// Complete removes id and returns when it was registered. ok is false when
// the id was never registered, already completed, cancelled or evicted.
func (t *Tracker) Complete(id string) (registered time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Delete(id)
}

// Contains reports whether id is pending.
func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending.Get(id)
	return ok
}

// Len returns the number of pending ids.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Len()
}
