package repository

import (
	"context"
	"sync"
)

// MemorySheetStore is an in-memory SheetStore used by the "memory" store
// driver and by tests.  Reads return deep copies, so callers can mutate the
// result without touching the stored snapshot.  A worksheet that was never
// written reads as an empty table with the canonical columns, matching how
// an untouched spreadsheet tab behaves.
type MemorySheetStore struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemorySheetStore returns an empty in-memory store.
func NewMemorySheetStore() *MemorySheetStore {
	return &MemorySheetStore{tables: make(map[string]*Table)}
}

func copyTable(t *Table) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// Read returns a copy of the worksheet's current snapshot.
func (s *MemorySheetStore) Read(ctx context.Context, worksheet string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[worksheet]
	if !ok {
		return &Table{Columns: append([]string(nil), SheetColumns...)}, nil
	}
	return copyTable(t), nil
}

// Overwrite replaces the worksheet with a copy of t.
func (s *MemorySheetStore) Overwrite(ctx context.Context, worksheet string, t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[worksheet] = copyTable(t)
	return nil
}
