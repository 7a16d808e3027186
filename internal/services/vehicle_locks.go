package services

import "sync"

// vehicleLocks serializes transitions per vehicle number so two concurrent
// requests for the same vehicle cannot interleave load-mutate-save and lose
// an update. Locks are refcounted and dropped from the map once released so
// the map does not grow with every vehicle ever seen.
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[string]*vehicleLock
}

type vehicleLock struct {
	mu   sync.Mutex
	refs int
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{locks: make(map[string]*vehicleLock)}
}

// acquire blocks until the per-vehicle lock is held and returns the release
// function.
func (l *vehicleLocks) acquire(vehicleNumber string) func() {
	l.mu.Lock()
	entry, ok := l.locks[vehicleNumber]
	if !ok {
		entry = &vehicleLock{}
		l.locks[vehicleNumber] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, vehicleNumber)
		}
		l.mu.Unlock()
	}
}
