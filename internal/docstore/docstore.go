// Package docstore defines the key-path document store the ledger persists to.
//
// A store holds one JSON tree. Paths are slash separated keys into that tree,
// such as "accounts/k1/saldoDisponible". Values are plain JSON trees built from
// map[string]any, []any, json.Number, string and bool. Numbers are always
// json.Number so that no precision is lost to float64.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Store is the contract the ledger needs from a remote document store.
type Store interface {
	// Read returns the value at a path once. A missing path is not an error,
	// the returned Snapshot simply does not exist.
	Read(ctx context.Context, path string) (Snapshot, error)
	// Subscribe calls onChange with the current value at a path, then again
	// after every committed write touching the path, in commit order.
	Subscribe(path string, onChange func(Snapshot)) (Subscription, error)
	// WriteAtomic applies every path in updates as one commit. Either all of
	// the values are written or none are. A nil value deletes the path.
	WriteAtomic(ctx context.Context, updates map[string]any) error
	// NewKey returns a fresh key for a child document.
	NewKey() string
}

// Subscription is returned by Store.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Snapshot is the value found at a path.
type Snapshot struct {
	Path  string
	Value any
}

// Exists returns true if a value was present at the path.
func (snapshot Snapshot) Exists() bool {
	return snapshot.Value != nil
}

// Children returns the child values of a snapshot holding a JSON object.
func (snapshot Snapshot) Children() map[string]any {
	children, _ := snapshot.Value.(map[string]any)

	return children
}

// ErrInvalidPath is returned for malformed paths and conflicting updates.
var ErrInvalidPath = errors.New("invalid path")

// SplitPath splits a path into its keys. The empty path is the root.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	segments := strings.Split(path, "/")

	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q has an empty key", ErrInvalidPath, path)
		}
	}

	return segments, nil
}

// Related returns true if one path is equal to or inside the other.
func Related(left, right []string) bool {
	if len(left) > len(right) {
		left, right = right, left
	}

	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}

	return true
}

// Update is one validated entry of an atomic write.
type Update struct {
	Path     string
	Segments []string
	Value    any
}

// PlanUpdates validates the paths of an atomic write and normalises the values.
//
// The result is sorted by path. Writing the root, or writing two paths where one
// contains the other, is rejected.
func PlanUpdates(updates map[string]any) ([]Update, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no paths to write", ErrInvalidPath)
	}

	planned := make([]Update, 0, len(updates))

	for path, value := range updates {
		segments, err := SplitPath(path)

		if err != nil {
			return nil, err
		}

		if len(segments) == 0 {
			return nil, fmt.Errorf("%w: the root cannot be written", ErrInvalidPath)
		}

		normalised, err := Normalize(value)

		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", path, err)
		}

		planned = append(planned, Update{Path: path, Segments: segments, Value: normalised})
	}

	sort.Slice(planned, func(i, j int) bool {
		return planned[i].Path < planned[j].Path
	})

	for i := range planned {
		for j := i + 1; j < len(planned); j++ {
			if Related(planned[i].Segments, planned[j].Segments) {
				return nil, fmt.Errorf(
					"%w: %q and %q overlap",
					ErrInvalidPath,
					planned[i].Path,
					planned[j].Path,
				)
			}
		}
	}

	return planned, nil
}

// Normalize converts a value to the plain JSON tree form used by stores.
//
// Empty objects become nil, as a document without fields does not exist.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)

	if err != nil {
		return nil, err
	}

	return Decode(data)
}

// Decode parses JSON text into a plain JSON tree with json.Number numbers.
func Decode(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var out any

	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}

	return prune(out), nil
}

func prune(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			if pruned := prune(child); pruned == nil {
				delete(v, key)
			} else {
				v[key] = pruned
			}
		}

		if len(v) == 0 {
			return nil
		}
	case []any:
		for i := range v {
			v[i] = prune(v[i])
		}
	}

	return value
}

// Clone deep copies a plain JSON tree.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, child := range v {
			out[key] = Clone(child)
		}

		return out
	case []any:
		out := make([]any, len(v))

		for i, child := range v {
			out[i] = Clone(child)
		}

		return out
	default:
		return v
	}
}

// NewKey returns a time ordered key.
//
// Keys created later in the same process sort after earlier keys.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}
