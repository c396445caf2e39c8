package services

import (
	"sync"

	"github.com/google/uuid"
)

// CartLocks serializes mutations of the same user's cart within this process.
// Cart and checkout services must share one instance.
type CartLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*cartLock
}

type cartLock struct {
	sync.Mutex
	refs int
}

func NewCartLocks() *CartLocks {
	return &CartLocks{locks: make(map[uuid.UUID]*cartLock)}
}

// Lock blocks until userID's cart is free and returns the unlock func.
func (l *CartLocks) Lock(userID uuid.UUID) func() {
	l.mu.Lock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &cartLock{}
		l.locks[userID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.Lock()
	return func() {
		lk.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
