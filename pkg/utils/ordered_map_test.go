package utils_test

import (
	"testing"

	"github.com/penguin-lang/penguinc/pkg/utils"
)

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := utils.NewOrderedMap[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)

	want := []string{"c", "a", "b"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOrderedMapUpdateKeepsPosition(t *testing.T) {
	m := utils.NewOrderedMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10)

	if got := m.Keys(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected original order preserved, got %v", got)
	}
	v, ok := m.Get("a")
	if !ok || v != 10 {
		t.Fatalf("expected updated value 10, got %d (ok=%v)", v, ok)
	}
}

func TestOrderedMapGetMissing(t *testing.T) {
	m := utils.NewOrderedMap[string, int]()
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected ok=false for missing key")
	}
}
