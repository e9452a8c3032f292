// Package store implements the CSV-backed record store.
//
// Each entity kind lives in one CSV file under the data directory, with a
// header row and one logical row per entity. Every mutation rewrites the
// whole table through an atomic temp-then-rename, so a crash mid-write can
// never expose a half-updated row. Writers are serialized per table, never
// globally, so unrelated tables do not block each other.
package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/trackerr"
	"github.com/volumod/tracker/internal/util"
)

// Store provides typed read/write access to the entity tables.
type Store struct {
	dir string

	mu     sync.Mutex
	tables map[string]*tableState
}

// tableState carries the per-table writer lock and the id high-water mark,
// which keeps ids monotonic within the store's lifetime even if the table
// file is replaced underneath us.
type tableState struct {
	mu      sync.Mutex
	lastSeq int
}

// Open opens (and if needed creates) a store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, trackerr.IOError("create data directory", dir, err)
	}
	return &Store{
		dir:    dir,
		tables: make(map[string]*tableState),
	}, nil
}

// Dir returns the data directory the store is rooted at.
func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk path of a table's CSV file.
func (s *Store) Path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

func (s *Store) state(table string) *tableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tables[table]
	if !ok {
		ts = &tableState{}
		s.tables[table] = ts
	}
	return ts
}

// Load reads the table from disk and returns all rows in file order.
// It always reflects the on-disk state at call time; nothing is cached.
// A missing file is an empty table, not an error.
func Load[T record.Row](s *Store, tbl record.Table[T]) ([]T, error) {
	return readAll(s, tbl)
}

// Get returns the row with the given id, or NotFound.
func Get[T record.Row](s *Store, tbl record.Table[T], id string) (T, error) {
	var zero T
	rows, err := Load(s, tbl)
	if err != nil {
		return zero, err
	}
	for _, r := range rows {
		if r.RowID() == id {
			return r, nil
		}
	}
	return zero, trackerr.NotFound(tbl.Name, id)
}

// AllWhere returns the rows matching the predicate, in file order.
func AllWhere[T record.Row](s *Store, tbl record.Table[T], pred func(T) bool) ([]T, error) {
	rows, err := Load(s, tbl)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Save appends a new row to the table, assigning the next free id when the
// row carries none. Ids are monotonically non-decreasing and never reused.
func Save[T record.Row](s *Store, tbl record.Table[T], row T) error {
	if err := row.Validate(); err != nil {
		return err
	}

	ts := s.state(tbl.Name)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rows, err := readAll(s, tbl)
	if err != nil {
		return err
	}

	if row.RowID() == "" {
		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.RowID()
		}
		row.SetRowID(nextID(ts, tbl.IDPrefix, ids))
	} else {
		for _, existing := range rows {
			if existing.RowID() == row.RowID() {
				return trackerr.Validation(
					fmt.Sprintf("%s %s already exists", tbl.Name, row.RowID()),
					"ids are unique within a table and never reused")
			}
		}
	}
	if row.Revision() == 0 {
		row.SetRevision(1)
	}

	rows = append(rows, row)
	return writeAll(s, tbl, rows)
}

// Update replaces the row with the given id wholesale. The row must carry
// the revision it was loaded at; a mismatch means another writer got there
// first and the update fails with Conflict instead of silently discarding
// their write.
func Update[T record.Row](s *Store, tbl record.Table[T], id string, row T) error {
	row.SetRowID(id)
	if err := row.Validate(); err != nil {
		return err
	}

	ts := s.state(tbl.Name)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rows, err := readAll(s, tbl)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(rows, func(r T) bool { return r.RowID() == id })
	if idx < 0 {
		return trackerr.NotFound(tbl.Name, id)
	}
	if rows[idx].Revision() != row.Revision() {
		return trackerr.Conflict(tbl.Name, id)
	}

	row.SetRevision(row.Revision() + 1)
	rows[idx] = row
	return writeAll(s, tbl, rows)
}

// readAll parses the table file. Schema problems (bad header, malformed
// values, enum literals outside their closed set) surface as SchemaError;
// they are ingestion failures, never silently dropped rows.
func readAll[T record.Row](s *Store, tbl record.Table[T]) ([]T, error) {
	path := s.Path(tbl.Name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, trackerr.IOError("open", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(tbl.Columns)

	header, err := r.Read()
	if err == io.EOF {
		return nil, trackerr.SchemaError(tbl.Name, "file has no header row")
	}
	if err != nil {
		return nil, trackerr.SchemaError(tbl.Name, fmt.Sprintf("reading header: %v", err))
	}
	if !slices.Equal(header, tbl.Columns) {
		return nil, trackerr.SchemaError(tbl.Name,
			fmt.Sprintf("header is [%s], want [%s]",
				strings.Join(header, ","), strings.Join(tbl.Columns, ",")))
	}

	var rows []T
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, trackerr.SchemaError(tbl.Name, fmt.Sprintf("reading row: %v", err))
		}
		row, err := tbl.Decode(fields)
		if err != nil {
			return nil, err
		}
		if err := row.Validate(); err != nil {
			// On-disk rows that fail validation are schema problems, not
			// caller mistakes.
			return nil, trackerr.SchemaError(tbl.Name, err.Error())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeAll rewrites the whole table as one atomic operation.
func writeAll[T record.Row](s *Store, tbl record.Table[T], rows []T) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tbl.Columns); err != nil {
		return trackerr.IOError("encode", tbl.Name, err)
	}
	for _, row := range rows {
		if err := w.Write(tbl.Encode(row)); err != nil {
			return trackerr.IOError("encode", tbl.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return trackerr.IOError("encode", tbl.Name, err)
	}

	path := s.Path(tbl.Name)
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return trackerr.IOError("write", path, err)
	}
	return nil
}

// nextID returns the next unused id for the table. The high-water mark
// covers both the ids on disk and every id this store has handed out, so
// ids stay monotonically non-decreasing for the store's lifetime.
func nextID(ts *tableState, prefix string, ids []string) string {
	max := ts.lastSeq
	for _, id := range ids {
		if n, ok := parseSeq(prefix, id); ok && n > max {
			max = n
		}
	}
	ts.lastSeq = max + 1
	return fmt.Sprintf("%s%03d", prefix, ts.lastSeq)
}

// parseSeq extracts the numeric part of a prefixed id like "T014".
func parseSeq(prefix, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
