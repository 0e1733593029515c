package calendar_sync

import "sync"

type pairKey struct {
	userId  int
	eventId int
}

type pairLockEntry struct {
	mu   sync.Mutex
	refs int
}

// pairLock serializes syncs of the same (user, event) pair. Entries are dropped
// once no goroutine holds or waits for them.
type pairLock struct {
	mu      sync.Mutex
	entries map[pairKey]*pairLockEntry
}

func newPairLock() *pairLock {
	return &pairLock{entries: make(map[pairKey]*pairLockEntry)}
}

func (l *pairLock) lock(userId, eventId int) (unlock func()) {
	key := pairKey{userId: userId, eventId: eventId}

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &pairLockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *pairLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
