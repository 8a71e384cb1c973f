// Package lock serializes reconciliation per order, in process or across
// instances through redis.
package lock

import (
	"context"
	"sync"
)

// KeyedMutex hands out one mutex per order id. Entries are dropped once no
// caller holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*keyLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, orderID int64) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[orderID]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[orderID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(orderID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(orderID, l)
		})
	}, nil
}

func (k *KeyedMutex) release(orderID int64, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, orderID)
	}
}

// Len reports how many order ids currently have a lock entry.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
