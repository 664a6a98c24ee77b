package estimator

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// Spy records named values against a row key while an estimator or endpoint
// runs (the endpoints report each probe's status into one), so a caller can later dump
// what happened across many estimate/query calls without every estimator
// having to agree on a fixed result shape up front.
type Spy struct {
	rows    map[string]map[string]any
	columns map[string]struct{}
}

// NewSpy returns an empty Spy.
func NewSpy() *Spy {
	return &Spy{rows: map[string]map[string]any{}, columns: map[string]struct{}{}}
}

// Has reports whether row/column has been reported.
func (s *Spy) Has(row, column string) bool {
	cols, ok := s.rows[row]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// Report records value under row/column, overwriting any previous value.
func (s *Spy) Report(row, column string, value any) {
	cols, ok := s.rows[row]
	if !ok {
		cols = map[string]any{}
		s.rows[row] = cols
	}
	cols[column] = value
	s.columns[column] = struct{}{}
}

// Get returns the value reported at row/column, or nil if none was
// reported.
func (s *Spy) Get(row, column string) any {
	return s.rows[row][column]
}

// GetDefault returns the value reported at row/column, or default if none
// was reported.
func (s *Spy) GetDefault(row, column string, def any) any {
	if !s.Has(row, column) {
		return def
	}
	return s.Get(row, column)
}

// ToRows renders every reported row as a slice of values ordered by sorted
// column name, with the sorted column names themselves as the header —
// the same layout the reference's to_dataframe()/to_csv() produce.
func (s *Spy) ToRows() (header []string, rows [][]string) {
	header = make([]string, 0, len(s.columns))
	for col := range s.columns {
		header = append(header, col)
	}
	sort.Strings(header)

	rowKeys := make([]string, 0, len(s.rows))
	for row := range s.rows {
		rowKeys = append(rowKeys, row)
	}
	sort.Strings(rowKeys)

	for _, rowKey := range rowKeys {
		cols := s.rows[rowKey]
		record := make([]string, len(header))
		for i, col := range header {
			if v, ok := cols[col]; ok {
				record[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, record)
	}
	return header, rows
}

// ToCSV writes every reported row to filename as CSV, column-sorted, one
// line per row key — the Go stdlib counterpart of the reference's
// pandas-based to_csv(), since no dataframe library exists anywhere in
// this module's dependency surface to justify carrying one in for a
// single CSV dump.
func (s *Spy) ToCSV(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header, rows := s.ToRows()
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
