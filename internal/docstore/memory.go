package docstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// Memory is a Store kept in process memory.
//
// Subscribers are called synchronously before WriteAtomic returns, one commit
// at a time. A subscriber must not call back into the same store from its
// callback.
type Memory struct {
	mu sync.Mutex
	// deliver serialises notifications so they arrive in commit order.
	deliver  sync.Mutex
	root     map[string]any
	subs     map[int]*memorySubscription
	nextID   int
	failure  error
	attempts int
	commits  int
}

type memorySubscription struct {
	store    *Memory
	id       int
	path     string
	segments []string
	onChange func(Snapshot)
	active   atomic.Bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		root: map[string]any{},
		subs: map[int]*memorySubscription{},
	}
}

func lookup(root map[string]any, segments []string) any {
	var node any = root

	for _, segment := range segments {
		children, ok := node.(map[string]any)

		if !ok {
			return nil
		}

		node = children[segment]
	}

	if children, ok := node.(map[string]any); ok && len(children) == 0 {
		return nil
	}

	return node
}

func assign(root map[string]any, segments []string, value any) {
	if len(segments) == 1 {
		if value == nil {
			delete(root, segments[0])
		} else {
			root[segments[0]] = value
		}

		return
	}

	child, ok := root[segments[0]].(map[string]any)

	if !ok {
		if value == nil {
			return
		}

		child = map[string]any{}
		root[segments[0]] = child
	}

	assign(child, segments[1:], value)

	if len(child) == 0 {
		delete(root, segments[0])
	}
}

// Read returns a copy of the value at a path.
func (store *Memory) Read(ctx context.Context, path string) (Snapshot, error) {
	segments, err := SplitPath(path)

	if err != nil {
		return Snapshot{}, err
	}

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	return Snapshot{Path: path, Value: Clone(lookup(store.root, segments))}, nil
}

// Subscribe registers onChange and calls it with the current value.
func (store *Memory) Subscribe(path string, onChange func(Snapshot)) (Subscription, error) {
	segments, err := SplitPath(path)

	if err != nil {
		return nil, err
	}

	store.mu.Lock()

	store.nextID++
	subscription := &memorySubscription{
		store:    store,
		id:       store.nextID,
		path:     path,
		segments: segments,
		onChange: onChange,
	}
	subscription.active.Store(true)
	store.subs[subscription.id] = subscription
	current := Snapshot{Path: path, Value: Clone(lookup(store.root, segments))}

	store.deliver.Lock()
	store.mu.Unlock()

	subscription.onChange(current)
	store.deliver.Unlock()

	return subscription, nil
}

func (subscription *memorySubscription) Unsubscribe() {
	subscription.active.Store(false)

	store := subscription.store
	store.mu.Lock()
	delete(store.subs, subscription.id)
	store.mu.Unlock()
}

type notification struct {
	subscription *memorySubscription
	snapshot     Snapshot
}

// WriteAtomic validates every update, then applies them all in one step.
func (store *Memory) WriteAtomic(ctx context.Context, updates map[string]any) error {
	store.mu.Lock()
	store.attempts++
	failure := store.failure
	store.mu.Unlock()

	if failure != nil {
		return failure
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	planned, err := PlanUpdates(updates)

	if err != nil {
		return err
	}

	store.mu.Lock()

	for _, update := range planned {
		assign(store.root, update.Segments, update.Value)
	}

	store.commits++

	var pending []notification

	for _, subscription := range store.subs {
		for _, update := range planned {
			if Related(subscription.segments, update.Segments) {
				pending = append(pending, notification{
					subscription: subscription,
					snapshot: Snapshot{
						Path:  subscription.path,
						Value: Clone(lookup(store.root, subscription.segments)),
					},
				})

				break
			}
		}
	}

	store.deliver.Lock()
	store.mu.Unlock()
	defer store.deliver.Unlock()

	for _, item := range pending {
		if item.subscription.active.Load() {
			item.subscription.onChange(item.snapshot)
		}
	}

	return nil
}

// NewKey returns a time ordered key.
func (store *Memory) NewKey() string {
	return NewKey()
}

// FailWrites makes every following write fail with err. Pass nil to stop.
func (store *Memory) FailWrites(err error) {
	store.mu.Lock()
	store.failure = err
	store.mu.Unlock()
}

// Attempts returns how many times WriteAtomic was called.
func (store *Memory) Attempts() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	return store.attempts
}

// Commits returns how many writes were applied.
func (store *Memory) Commits() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	return store.commits
}
