package board

// ShapeStore holds the canonical set of shapes for one board, keyed by shape
// id, preserving insertion order. An update keeps the shape's original
// position so rendering order stays predictable. The store does no locking:
// it is mutated only from its owning Actor's goroutine.
type ShapeStore struct {
	shapes map[string]Shape
	order  []string
}

func NewShapeStore() *ShapeStore {
	return &ShapeStore{
		shapes: make(map[string]Shape),
	}
}

// Add inserts a shape. A duplicate id is resolved as an update rather than a
// hard failure; the returned flag reports whether an existing record was
// replaced.
func (s *ShapeStore) Add(shape Shape) (replaced bool) {
	return s.put(shape)
}

// Update upserts a shape by id. An unknown id behaves like Add.
func (s *ShapeStore) Update(shape Shape) {
	s.put(shape)
}

func (s *ShapeStore) put(shape Shape) (replaced bool) {
	if _, ok := s.shapes[shape.ID]; ok {
		s.shapes[shape.ID] = shape
		return true
	}
	s.shapes[shape.ID] = shape
	s.order = append(s.order, shape.ID)
	return false
}

// Delete removes every listed id. Absent ids are ignored, so deletes are
// idempotent. Returns the number of shapes actually removed.
func (s *ShapeStore) Delete(ids []string) int {
	removed := 0
	for _, id := range ids {
		if _, ok := s.shapes[id]; ok {
			delete(s.shapes, id)
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.shapes[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return removed
}

// Clear empties the store.
func (s *ShapeStore) Clear() {
	s.shapes = make(map[string]Shape)
	s.order = s.order[:0]
}

// Snapshot returns a copy of all shapes in insertion/update order. The copy
// is safe to hand outside the actor.
func (s *ShapeStore) Snapshot() []Shape {
	out := make([]Shape, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.shapes[id])
	}
	return out
}

// Len returns the number of live shapes.
func (s *ShapeStore) Len() int {
	return len(s.shapes)
}
