// Package memsource implements pagequery.DataSource over in-memory tables.
//
// Joins, filters and orderings are evaluated row by row with SQL semantics:
// LEFT joins keep unmatched rows with NULL joined columns, comparisons
// against NULL never match. NULLs sort last ascending and first descending
// like PostgreSQL unless a Source is switched to NullsSmallest, which
// matches SQLite and MySQL.
package memsource

import (
	"maps"
	"slices"
	"sync"
)

// Record is a table row keyed by unqualified column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Store holds named tables of records. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]Record
}

func NewStore() *Store {
	return &Store{
		tables: make(map[string][]Record),
	}
}

// Insert appends copies of rows to table.
func (s *Store) Insert(table string, rows ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.tables[table] = append(s.tables[table], row.Clone())
	}
}

// Update applies fn to a copy of every row of table matching match and
// stores the result. Returns the number of updated rows.
func (s *Store) Update(table string, match func(Record) bool, fn func(Record) Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0
	rows := slices.Clone(s.tables[table])
	for i, row := range rows {
		if !match(row) {
			continue
		}

		rows[i] = fn(row.Clone())
		affected++
	}
	s.tables[table] = rows

	return affected
}

// Delete removes every row of table matching match. Returns the number of
// deleted rows.
func (s *Store) Delete(table string, match func(Record) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.tables[table])
	s.tables[table] = slices.DeleteFunc(slices.Clone(s.tables[table]), match)

	return before - len(s.tables[table])
}

// Rows returns copies of the rows of table.
func (s *Store) Rows(table string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make([]Record, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		ret = append(ret, row.Clone())
	}

	return ret
}

// Snapshot returns a store holding the current rows of every table. Writes to
// s after the call are not visible through the snapshot, which gives a
// request one consistent view for its content and count queries.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make(map[string][]Record, len(s.tables))
	for name, rows := range s.tables {
		tables[name] = slices.Clone(rows)
	}

	return &Store{tables: tables}
}

// table returns the rows of name without copying. Callers must not modify
// them; Update and Delete replace slices instead of writing into them.
func (s *Store) table(name string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tables[name]
}
