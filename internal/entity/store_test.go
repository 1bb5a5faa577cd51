package entity

import "testing"

type health struct {
	hp int
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore[health](8)

	a := s.Create(health{hp: 10})
	b := s.Create(health{hp: 20})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	got, ok := s.Get(a)
	if !ok || got.hp != 10 {
		t.Errorf("Get(a) = %+v, %v", got, ok)
	}
	got, ok = s.Get(b)
	if !ok || got.hp != 20 {
		t.Errorf("Get(b) = %+v, %v", got, ok)
	}
}

func TestRemoveSwapsLastIntoSlot(t *testing.T) {
	s := NewStore[health](8)

	a := s.Create(health{hp: 1})
	b := s.Create(health{hp: 2})
	c := s.Create(health{hp: 3})

	if !s.Remove(a) {
		t.Fatal("Remove(a) = false")
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d after remove, want 2", s.Len())
	}

	// b and c must still resolve, and the dense array must stay packed.
	if got, ok := s.Get(b); !ok || got.hp != 2 {
		t.Errorf("Get(b) after remove = %+v, %v", got, ok)
	}
	if got, ok := s.Get(c); !ok || got.hp != 3 {
		t.Errorf("Get(c) after remove = %+v, %v", got, ok)
	}

	view := s.View()
	seen := map[int]bool{}
	for i := 0; i < view.Len(); i++ {
		seen[view.At(i).hp] = true
	}
	if !seen[2] || !seen[3] || len(seen) != 2 {
		t.Errorf("dense contents after remove = %v, want {2, 3}", seen)
	}
}

func TestStaleIDRejected(t *testing.T) {
	s := NewStore[health](8)

	a := s.Create(health{hp: 1})
	if !s.Remove(a) {
		t.Fatal("Remove(a) = false")
	}

	if _, ok := s.Get(a); ok {
		t.Error("Get(stale) = ok")
	}
	if s.Remove(a) {
		t.Error("Remove(stale) = true")
	}

	// The recycled slot must mint a fresh generation.
	b := s.Create(health{hp: 9})
	if b == a {
		t.Errorf("recycled ID %+v equals stale ID", b)
	}
	if _, ok := s.Get(a); ok {
		t.Error("stale ID resolves after slot reuse")
	}
}

func TestViewWritesThrough(t *testing.T) {
	s := NewStore[health](4)
	id := s.Create(health{hp: 5})

	view := s.View()
	for i := 0; i < view.Len(); i++ {
		view.At(i).hp *= 2
	}

	got, ok := s.Get(id)
	if !ok || got.hp != 10 {
		t.Errorf("after view write: Get = %+v, %v, want hp 10", got, ok)
	}
	if view.ID(0) != id {
		t.Errorf("View.ID(0) = %+v, want %+v", view.ID(0), id)
	}
}
