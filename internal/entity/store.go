// Package entity provides a dense generational entity/component store. It is
// the external collaborator the job scheduler iterates over: the scheduler
// never sees a component, only a length and an indexed accessor.
package entity

// ID names an entity. IDs are stable across removals of other entities and
// become invalid when their slot is recycled.
type ID struct {
	Index uint32
	Gen   uint32
}

// Store keeps components of type T densely packed, so index iteration walks
// contiguous memory. Lookup by ID goes through a sparse table in O(1).
//
// The store is safe for concurrent reads, and for concurrent writes through
// View as long as writers touch disjoint indices, which is the chunking
// discipline ParallelFor provides. Structural mutation (Create, Remove)
// must not overlap iteration.
type Store[T any] struct {
	dense   []T
	denseID []ID
	sparse  []uint32
	gens    []uint32
	free    []uint32
}

// NewStore creates an empty store with room for capacity components.
func NewStore[T any](capacity int) *Store[T] {
	return &Store[T]{
		dense:   make([]T, 0, capacity),
		denseID: make([]ID, 0, capacity),
	}
}

// Len returns the number of live entities.
func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Create adds a component and returns the ID of the new entity.
func (s *Store[T]) Create(v T) ID {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.gens[idx]++
	} else {
		idx = uint32(len(s.sparse))
		s.sparse = append(s.sparse, 0)
		s.gens = append(s.gens, 1)
	}

	id := ID{Index: idx, Gen: s.gens[idx]}
	s.sparse[idx] = uint32(len(s.dense))
	s.dense = append(s.dense, v)
	s.denseID = append(s.denseID, id)
	return id
}

// Get returns a pointer to the component for id, or false for a stale or
// unknown ID.
func (s *Store[T]) Get(id ID) (*T, bool) {
	if !s.alive(id) {
		return nil, false
	}
	return &s.dense[s.sparse[id.Index]], true
}

// Remove deletes the entity, swapping the last component into its dense
// slot. Returns false for a stale or unknown ID.
func (s *Store[T]) Remove(id ID) bool {
	if !s.alive(id) {
		return false
	}

	pos := s.sparse[id.Index]
	last := uint32(len(s.dense) - 1)
	if pos != last {
		s.dense[pos] = s.dense[last]
		s.denseID[pos] = s.denseID[last]
		s.sparse[s.denseID[pos].Index] = pos
	}
	s.dense = s.dense[:last]
	s.denseID = s.denseID[:last]

	s.gens[id.Index]++
	s.free = append(s.free, id.Index)
	return true
}

func (s *Store[T]) alive(id ID) bool {
	return int(id.Index) < len(s.gens) && s.gens[id.Index] == id.Gen
}

// View returns an indexable view over the dense component array, satisfying
// the scheduler's iteration contract. The view is invalidated by structural
// mutation.
func (s *Store[T]) View() View[T] {
	return View[T]{s: s}
}

// View is a length-plus-accessor window over a Store.
type View[T any] struct {
	s *Store[T]
}

// Len returns the number of live entities.
func (v View[T]) Len() int {
	return len(v.s.dense)
}

// At returns a pointer to the component at dense index i. Writing through
// the pointer is safe as long as concurrent writers touch disjoint indices.
func (v View[T]) At(i int) *T {
	return &v.s.dense[i]
}

// ID returns the entity ID at dense index i.
func (v View[T]) ID(i int) ID {
	return v.s.denseID[i]
}
