package snapshot

import (
	"reflect"
	"testing"
)

type item struct {
	key   string
	value int
}

func itemKey(i item) string { return i.key }

func TestValueLoadAndStore(t *testing.T) {
	var value Value[int]

	if value.Loaded() || value.Load() != 0 {
		t.Fatalf("empty value = %d, loaded = %v", value.Load(), value.Loaded())
	}

	value.Store(3)

	if !value.Loaded() || value.Load() != 3 {
		t.Fatalf("Load() = %d, want 3", value.Load())
	}
}

func TestValueSubscribe(t *testing.T) {
	var value Value[int]
	value.Store(1)

	var seen []int
	unsubscribe := value.Subscribe(func(n int) { seen = append(seen, n) })

	value.Store(2)
	unsubscribe()
	unsubscribe()
	value.Store(3)

	if want := []int{1, 2}; !reflect.DeepEqual(seen, want) {
		t.Errorf("observed %v, want %v", seen, want)
	}
}

func TestCollection(t *testing.T) {
	collection := NewCollection([]item{{"a", 1}, {"b", 2}, {"a", 3}}, itemKey)

	if collection.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", collection.Len())
	}

	if got, ok := collection.Get("a"); !ok || got.value != 3 {
		t.Errorf("Get(a) = %v, %v, want the later item", got, ok)
	}

	if _, ok := collection.Get("missing"); ok {
		t.Error("Get(missing) found an item")
	}

	if got, ok := collection.Find(func(i item) bool { return i.value == 2 }); !ok || got.key != "b" {
		t.Errorf("Find() = %v, %v", got, ok)
	}

	all := collection.All()
	all[0].value = 100

	if got, _ := collection.Get("a"); got.value != 3 {
		t.Error("All() exposed the underlying slice")
	}
}
