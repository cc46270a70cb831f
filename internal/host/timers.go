package host

import (
	"sync"
	"time"
)

// Timers runs one delayed callback per async id. Re-arming an id replaces
// its callback; a stale timer that fires after being replaced or cancelled
// does nothing.
type Timers struct {
	mu          sync.Mutex
	timers      map[string]*time.Timer
	timerIDs    map[string]uint64
	nextTimerID uint64
	// run hands an expired callback to whoever executes it.
	run func(fn func())
}

// NewTimers creates a timer set that passes expired callbacks to run.
func NewTimers(run func(fn func())) *Timers {
	return &Timers{
		timers:   make(map[string]*time.Timer),
		timerIDs: make(map[string]uint64),
		run:      run,
	}
}

// After schedules fn for id once d has elapsed.
func (k *Timers) After(id string, d time.Duration, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.stopLocked(id)
	k.nextTimerID++
	timerID := k.nextTimerID
	k.timers[id] = time.AfterFunc(d, func() {
		k.expire(id, timerID, fn)
	})
	k.timerIDs[id] = timerID
}

// Cancel stops the timer for id, if any.
func (k *Timers) Cancel(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopLocked(id)
}

// Pending reports whether id has a timer armed.
func (k *Timers) Pending(id string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.timers[id]
	return ok
}

func (k *Timers) stopLocked(id string) {
	if t, ok := k.timers[id]; ok {
		t.Stop()
		delete(k.timers, id)
		delete(k.timerIDs, id)
	}
}

func (k *Timers) expire(id string, timerID uint64, fn func()) {
	k.mu.Lock()
	currentID, ok := k.timerIDs[id]
	if !ok || currentID != timerID {
		k.mu.Unlock()
		return
	}
	delete(k.timers, id)
	delete(k.timerIDs, id)
	k.mu.Unlock()

	k.run(fn)
}

// Stop cancels all timers.
func (k *Timers) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, t := range k.timers {
		t.Stop()
	}
	k.timers = make(map[string]*time.Timer)
	k.timerIDs = make(map[string]uint64)
}
