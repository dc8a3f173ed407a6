package snapshot

import "slices"

// Collection is an immutable ordered list of items indexed by key.
type Collection[T any] struct {
	items []T
	index map[string]int
}

// NewCollection builds a collection. Later items win when keys repeat.
func NewCollection[T any](items []T, key func(T) string) Collection[T] {
	collection := Collection[T]{
		items: make([]T, 0, len(items)),
		index: make(map[string]int, len(items)),
	}

	for _, item := range items {
		k := key(item)

		if i, ok := collection.index[k]; ok {
			collection.items[i] = item

			continue
		}

		collection.index[k] = len(collection.items)
		collection.items = append(collection.items, item)
	}

	return collection
}

// Get finds an item by key.
func (collection Collection[T]) Get(key string) (T, bool) {
	if i, ok := collection.index[key]; ok {
		return collection.items[i], true
	}

	var zero T

	return zero, false
}

// Find returns the first item matching a predicate.
func (collection Collection[T]) Find(match func(T) bool) (T, bool) {
	for _, item := range collection.items {
		if match(item) {
			return item, true
		}
	}

	var zero T

	return zero, false
}

// All returns a copy of the items in order.
func (collection Collection[T]) All() []T {
	return slices.Clone(collection.items)
}

// Len returns the number of items.
func (collection Collection[T]) Len() int {
	return len(collection.items)
}
