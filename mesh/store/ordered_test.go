package store

import "testing"

func TestOrderedMap_InsertionOrder(t *testing.T) {
	m := NewOrderedMap[int, string]()
	keys := []int{5, 3, 9, 1, 7}
	for _, k := range keys {
		m.Put(k, "v")
	}

	var got []int
	m.Range(func(k int, _ string) bool {
		got = append(got, k)
		return true
	})

	if len(got) != len(keys) {
		t.Fatalf("ranged over %d keys; want %d", len(got), len(keys))
	}
	for i, k := range keys {
		if got[i] != k {
			t.Errorf("position %d: got key %d, want %d", i, got[i], k)
		}
	}
}

func TestOrderedMap_PutExistingKeepsPosition(t *testing.T) {
	m := NewOrderedMap[int, string]()
	m.Put(1, "one")
	m.Put(2, "two")
	m.Put(1, "uno")

	if m.Len() != 2 {
		t.Fatalf("Len = %d; want 2", m.Len())
	}
	v, ok := m.Get(1)
	if !ok || v != "uno" {
		t.Errorf("Get(1) = %q, %v; want %q, true", v, ok, "uno")
	}
	var first int
	m.Range(func(k int, _ string) bool {
		first = k
		return false
	})
	if first != 1 {
		t.Errorf("first key after re-Put = %d; want 1", first)
	}
}

func TestOrderedMap_RangeEarlyStop(t *testing.T) {
	m := NewOrderedMap[int, int]()
	for i := 0; i < 10; i++ {
		m.Put(i, i)
	}
	count := 0
	m.Range(func(_, _ int) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Errorf("visited %d entries; want 3", count)
	}
}
