// Package snapshot holds the latest copy of a collection pushed by the store.
package snapshot

import (
	"sync"
	"sync/atomic"
)

// Value holds a snapshot that is replaced as a whole on every push.
//
// Readers always get one complete snapshot, never a mix of two pushes.
type Value[T any] struct {
	current atomic.Pointer[T]

	mu        sync.Mutex
	observers map[int]func(T)
	nextID    int
}

// Load returns the current snapshot, or the zero value before the first Store.
func (value *Value[T]) Load() T {
	if current := value.current.Load(); current != nil {
		return *current
	}

	var zero T

	return zero
}

// Loaded returns true once a snapshot has been stored.
func (value *Value[T]) Loaded() bool {
	return value.current.Load() != nil
}

// Store replaces the snapshot and calls every observer with it.
func (value *Value[T]) Store(next T) {
	value.current.Store(&next)

	value.mu.Lock()
	observers := make([]func(T), 0, len(value.observers))

	for _, observer := range value.observers {
		observers = append(observers, observer)
	}

	value.mu.Unlock()

	for _, observer := range observers {
		observer(next)
	}
}

// Subscribe registers an observer for future snapshots. The observer is called
// at once with the current snapshot if there is one. Call the returned function
// to stop observing.
func (value *Value[T]) Subscribe(observer func(T)) (unsubscribe func()) {
	value.mu.Lock()

	if value.observers == nil {
		value.observers = map[int]func(T){}
	}

	value.nextID++
	id := value.nextID
	value.observers[id] = observer
	value.mu.Unlock()

	if current := value.current.Load(); current != nil {
		observer(*current)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			value.mu.Lock()
			delete(value.observers, id)
			value.mu.Unlock()
		})
	}
}
