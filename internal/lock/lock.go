// Package lock serializes reservation writes per table and date.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablebook/internal/interval"
)

// ErrLockTimeout is returned when a lock could not be taken within the wait budget.
var ErrLockTimeout = errors.New("lock wait timeout")

// Releaser frees a held lock. It is safe to call more than once.
type Releaser func()

// Locker hands out exclusive locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Releaser, error)
}

// SlotKey is the lock key guarding one table's reservations on one date.
func SlotKey(tableID int64, date time.Time) string {
	return fmt.Sprintf("tablebook:lock:table:%d:%s", tableID, interval.FormatDate(date))
}

// Local is an in-process Locker backed by a channel per key. Keys are dropped
// once nobody holds or waits for them.
type Local struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker. A non-positive timeout waits for ctx only.
func NewLocal(timeout time.Duration) *Local {
	return &Local{slots: make(map[string]*slot), timeout: timeout}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		return
	}
	if s.refs--; s.refs == 0 {
		delete(l.slots, key)
	}
}

// Acquire blocks until key is free, the timeout elapses or ctx is done.
func (l *Local) Acquire(ctx context.Context, key string) (Releaser, error) {
	s := l.ref(key)

	var expired <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.ch <- struct{}{}:
	case <-expired:
		l.unref(key)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key)
		})
	}, nil
}

// held reports how many keys are currently tracked.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
