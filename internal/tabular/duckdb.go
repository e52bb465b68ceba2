package tabular

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBResource loads a delimited file through DuckDB's read_csv and serves
// it from memory. Rows are materialized once, in file order, at open time;
// lookups after that never touch the database.
type DuckDBResource struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]string
}

// OpenDuckDBResource bulk-loads the delimited file at path. delim is the
// field separator ("," or "\t"); skip is the number of preamble lines before
// the header.
func OpenDuckDBResource(path, delim string, skip int) (*DuckDBResource, error) {
	name := filepath.Base(path)

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	// all_varchar keeps type sniffing from mangling values; column names
	// still come from the header via auto-detection.
	query := fmt.Sprintf(
		`SELECT * FROM read_csv('%s', delim='%s', header=true, skip=%d, all_varchar=true)`,
		path, delim, skip,
	)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("read_csv %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}
	index, err := buildIndex(name, columns)
	if err != nil {
		return nil, err
	}

	r := &DuckDBResource{name: name, columns: columns, index: index}
	scan := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range scan {
		dest[i] = &scan[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", name, err)
		}
		values := make([]string, len(columns))
		for i, v := range scan {
			if v.Valid {
				values[i] = v.String
			}
		}
		r.rows = append(r.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return r, nil
}

func (d *DuckDBResource) Name() string { return d.name }

func (d *DuckDBResource) Columns() ([]string, error) {
	return d.columns, nil
}

// RowCount returns the number of data rows loaded.
func (d *DuckDBResource) RowCount() int {
	return len(d.rows)
}

func (d *DuckDBResource) Iterate(fn func(Row) (bool, error)) error {
	for _, values := range d.rows {
		stop, err := fn(NewRow(d.columns, d.index, values))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}
