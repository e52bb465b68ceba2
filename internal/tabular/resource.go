// Package tabular provides uniform access to tabular reference resources.
//
// A resource is a small flat file (delimited text, spreadsheet sheet, or an
// in-memory table) with a header row of unique column names. All field access
// is by column name, never by position, so datasets can reorder columns
// between releases without breaking call sites.
package tabular

import (
	"fmt"
)

// Row is one record of a resource, addressable by column name.
type Row struct {
	columns []string
	index   map[string]int
	values  []string
}

// NewRow creates a row over the given header and cell values. Rows shorter
// than the header read as empty strings for the missing cells.
func NewRow(columns []string, index map[string]int, values []string) Row {
	return Row{columns: columns, index: index, values: values}
}

// Get returns the cell value for the named column. The second return value is
// false if the column is not part of the resource header.
func (r Row) Get(column string) (string, bool) {
	i, ok := r.index[column]
	if !ok {
		return "", false
	}
	if i >= len(r.values) {
		return "", true
	}
	return r.values[i], true
}

// Columns returns the header the row was read under.
func (r Row) Columns() []string {
	return r.columns
}

// Values returns the raw cell values in header order.
func (r Row) Values() []string {
	return r.values
}

// Resource is a tabular reference dataset. Implementations may hold the table
// in memory or stream it from disk; the iteration contract is identical
// either way: rows are visited in file order and the callback may stop the
// scan early by returning true.
type Resource interface {
	// Name identifies the resource in error messages.
	Name() string
	// Columns returns the header column names.
	Columns() ([]string, error)
	// Iterate visits each row in order until fn returns stop or an error.
	Iterate(fn func(Row) (stop bool, err error)) error
}

// Match is the result of a key lookup: zero or one row plus the header used
// to resolve fields. A miss is a valid result, not an error.
type Match struct {
	Found   bool
	Row     Row
	Columns []string
}

// SchemaMismatchError reports a resource whose header does not satisfy the
// schema the code expects. This is a configuration error between a code
// release and a data release and is always fatal.
type SchemaMismatchError struct {
	Resource string
	Column   string
	Message  string
}

func (e *SchemaMismatchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("resource %s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("resource %s: missing required column %q", e.Resource, e.Column)
}

// missingColumn builds the error for a key column absent from the header.
func missingColumn(resource, column string) *SchemaMismatchError {
	return &SchemaMismatchError{Resource: resource, Column: column}
}

// buildIndex maps column names to positions, rejecting duplicate names.
func buildIndex(resource string, columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, &SchemaMismatchError{
				Resource: resource,
				Column:   c,
				Message:  fmt.Sprintf("duplicate column %q in header", c),
			}
		}
		index[c] = i
	}
	return index, nil
}

// RequireColumns verifies that every named column is present in the resource
// header, returning a SchemaMismatchError for the first one missing. Callers
// use it to fail fast on a data release whose schema drifted from the code.
func RequireColumns(r Resource, columns ...string) error {
	header, err := r.Columns()
	if err != nil {
		return err
	}
	index, err := buildIndex(r.Name(), header)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if _, ok := index[c]; !ok {
			return missingColumn(r.Name(), c)
		}
	}
	return nil
}

// FindRow scans the resource in order and returns the first row whose
// keyColumn cell equals keyValue exactly. No match yields an empty Match.
// A keyColumn absent from the header is a SchemaMismatchError.
func FindRow(r Resource, keyColumn, keyValue string) (Match, error) {
	columns, err := r.Columns()
	if err != nil {
		return Match{}, err
	}
	index, err := buildIndex(r.Name(), columns)
	if err != nil {
		return Match{}, err
	}
	if _, ok := index[keyColumn]; !ok {
		return Match{}, missingColumn(r.Name(), keyColumn)
	}

	m := Match{Columns: columns}
	err = r.Iterate(func(row Row) (bool, error) {
		v, _ := row.Get(keyColumn)
		if v == keyValue {
			m.Found = true
			m.Row = row
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return Match{}, err
	}
	return m, nil
}
