package app

import "sync"

type lockKey struct {
	userID int64
	jobID  int64
}

// keyLock hands out one mutex per (user, job) pair. Entries are reference
// counted and removed once nobody holds or waits for them.
type keyLock struct {
	mu    sync.Mutex
	locks map[lockKey]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[lockKey]*keyLockEntry)}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (k *keyLock) Lock(userID, jobID int64) func() {
	key := lockKey{userID: userID, jobID: jobID}

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyLockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
