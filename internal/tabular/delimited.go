package tabular

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DelimitedResource streams a delimited-text file (CSV or TSV, plain or
// gzipped) row by row without loading it into memory. Each Iterate call
// re-opens the file, so a resource value can be shared across lookups.
type DelimitedResource struct {
	path  string
	comma rune
	skip  int
}

// NewCSVResource creates a resource over a comma-delimited file.
func NewCSVResource(path string) *DelimitedResource {
	return &DelimitedResource{path: path, comma: ','}
}

// NewTSVResource creates a resource over a tab-delimited file.
func NewTSVResource(path string) *DelimitedResource {
	return &DelimitedResource{path: path, comma: '\t'}
}

// SetSkipLines sets the number of leading lines to discard before the header,
// for files that carry a comment preamble (e.g. cBioPortal data_mutations).
func (d *DelimitedResource) SetSkipLines(n int) {
	d.skip = n
}

func (d *DelimitedResource) Name() string {
	return filepath.Base(d.path)
}

// open returns a csv.Reader positioned at the header line, plus a closer for
// the underlying file handles.
func (d *DelimitedResource) open() (*csv.Reader, func() error, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open resource %s: %w", d.Name(), err)
	}

	var src io.Reader = f
	closer := f.Close

	// Gzip magic bytes (0x1f, 0x8b)
	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("seek resource %s: %w", d.Name(), err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("gzip resource %s: %w", d.Name(), err)
		}
		src = gz
		closer = func() error {
			gz.Close()
			return f.Close()
		}
	} else {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("seek resource %s: %w", d.Name(), err)
		}
	}

	r := csv.NewReader(src)
	r.Comma = d.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for i := 0; i < d.skip; i++ {
		if _, err := r.Read(); err != nil {
			closer()
			return nil, nil, fmt.Errorf("skip preamble of %s: %w", d.Name(), err)
		}
	}
	return r, closer, nil
}

func (d *DelimitedResource) Columns() ([]string, error) {
	r, closeFn, err := d.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", d.Name(), err)
	}
	return header, nil
}

func (d *DelimitedResource) Iterate(fn func(Row) (bool, error)) error {
	r, closeFn, err := d.open()
	if err != nil {
		return err
	}
	defer closeFn()

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", d.Name(), err)
	}
	index, err := buildIndex(d.Name(), header)
	if err != nil {
		return err
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read resource %s: %w", d.Name(), err)
		}
		stop, err := fn(NewRow(header, index, record))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
