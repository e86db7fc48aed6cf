package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"parcel-harvester/pkg/models"
)

// ErrEmptyResult is returned when there is nothing to consolidate.
var ErrEmptyResult = errors.New("no records collected")

// EmptyResultError means a run finished without a single record. The output
// file is not created.
type EmptyResultError struct {
	Path string
}

func (e *EmptyResultError) Error() string {
	if e.Path == "" {
		return ErrEmptyResult.Error()
	}
	return fmt.Sprintf("%s, %s not written", ErrEmptyResult, e.Path)
}

func (e *EmptyResultError) Unwrap() error { return ErrEmptyResult }

// Table is the consolidated view of heterogeneous records: the sorted union
// of their keys and one fully populated row per record.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Consolidate folds records into a Table. Columns are the lexicographically
// sorted union of all keys; a record lacking a column gets a blank cell.
func Consolidate(records []models.Record) (*Table, error) {
	if len(records) == 0 {
		return nil, &EmptyResultError{}
	}

	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = r[col]
		}
		rows[i] = row
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// Write emits the header and rows as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSV consolidates records and writes them to path. The file is written
// to a temporary sibling first so a failed write never leaves a truncated table.
func WriteCSV(path string, records []models.Record) (*Table, error) {
	table, err := Consolidate(records)
	if err != nil {
		var empty *EmptyResultError
		if errors.As(err, &empty) {
			empty.Path = path
		}
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := table.Write(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	// CreateTemp opens 0600
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("move %s into place: %w", path, err)
	}
	return table, nil
}

// ReadCSV loads a table written by WriteCSV.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, &EmptyResultError{Path: path}
	}
	return &Table{Columns: all[0], Rows: all[1:]}, nil
}

// Column returns the cells of the named column, or false when it is absent.
func (t *Table) Column(name string) ([]string, bool) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}
