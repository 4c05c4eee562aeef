package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/models"
)

// ============================================================
// Field Store
// ============================================================

var (
	ErrNotFound    = errors.New("field not found")
	ErrDuplicateID = errors.New("field id already used")
	ErrInvalidPage = errors.New("page must be >= 1")
)

// Patch is a partial update. Nil members are left untouched. Page and
// owner are deliberately absent: neither changes after creation.
type Patch struct {
	Position *geometry.Point `json:"position,omitempty"`
	Size     *geometry.Size  `json:"size,omitempty"`
	Content  *string         `json:"content,omitempty"`
}

type entry struct {
	seq   uint64
	field models.Field
}

// Store keeps the fields of one editing session in memory.
type Store struct {
	mu      sync.Mutex
	fields  map[string]*entry
	used    map[string]struct{} // every id ever issued, deleted or not
	nextSeq uint64
}

func New() *Store {
	return &Store{
		fields: make(map[string]*entry),
		used:   make(map[string]struct{}),
	}
}

// Create stores f and returns its id. An empty id is filled in.
func (s *Store) Create(f models.Field) (string, error) {
	if f.Page < 1 {
		return "", ErrInvalidPage
	}
	if f.ID == "" {
		f.ID = models.NewFieldID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.used[f.ID]; ok {
		return "", fmt.Errorf("create %s: %w", f.ID, ErrDuplicateID)
	}
	s.nextSeq++
	s.used[f.ID] = struct{}{}
	s.fields[f.ID] = &entry{seq: s.nextSeq, field: f}
	return f.ID, nil
}

// Get returns the fields on page in creation order.
func (s *Store) Get(page int) []models.Field {
	return s.collect(func(f models.Field) bool { return f.Page == page })
}

// All returns every field in creation order.
func (s *Store) All() []models.Field {
	return s.collect(func(models.Field) bool { return true })
}

func (s *Store) Lookup(id string) (models.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.fields[id]
	if !ok {
		return models.Field{}, false
	}
	return e.field, true
}

// Update applies p to the field. A size in the patch is clamped to the
// minimum before it is stored.
func (s *Store) Update(id string, p Patch) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.fields[id]
	if !ok {
		return models.Field{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	next := e.field
	if p.Position != nil {
		next.Position = *p.Position
	}
	if p.Size != nil {
		next.Size = geometry.ClampSize(*p.Size)
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	e.field = next
	return next, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(s.fields, id)
	return nil
}

// DeleteWhere removes every field matching pred and reports how many went.
func (s *Store) DeleteWhere(pred func(models.Field) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.fields {
		if pred(e.field) {
			delete(s.fields, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fields)
}

func (s *Store) collect(pred func(models.Field) bool) []models.Field {
	s.mu.Lock()
	matched := make([]*entry, 0, len(s.fields))
	for _, e := range s.fields {
		if pred(e.field) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]models.Field, len(matched))
	for i, e := range matched {
		out[i] = e.field
	}
	s.mu.Unlock()
	return out
}
