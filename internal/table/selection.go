package table

import "slices"

// Selection tracks the record identifiers checked for bulk operations.
type Selection struct {
	ids   map[string]struct{}
	order []string
}

// NewSelection returns an empty selection, optionally seeded with ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Selected returns the selected ids in selection order.
func (s *Selection) Selected() []string {
	return slices.Clone(s.order)
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// AllSelected reports whether every visible id is selected. An empty page is never fully selected.
func (s *Selection) AllSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// ToggleAll complements the selection relative to the visible page: a fully selected page is
// cleared, otherwise the visible ids are added. Ids from other pages are left untouched.
func (s *Selection) ToggleAll(visible []string) {
	if s.AllSelected(visible) {
		for _, id := range visible {
			s.remove(id)
		}
		return
	}
	for _, id := range visible {
		s.add(id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	clear(s.ids)
	s.order = s.order[:0]
}

func (s *Selection) add(id string) {
	if s.Has(id) {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	if !s.Has(id) {
		return
	}
	delete(s.ids, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}
