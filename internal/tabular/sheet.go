package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetResource is one sheet of a spreadsheet workbook, read random-access
// through excelize. The first row of the sheet is the header.
type SheetResource struct {
	file  *excelize.File
	sheet string
	name  string
}

// OpenSheet opens the named sheet of the workbook at path.
func OpenSheet(path, sheet string) (*SheetResource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("workbook %s: no sheet %q", path, sheet)
	}
	return &SheetResource{file: f, sheet: sheet, name: sheet}, nil
}

// NewSheetResource wraps an already-open workbook sheet.
func NewSheetResource(f *excelize.File, sheet string) *SheetResource {
	return &SheetResource{file: f, sheet: sheet, name: sheet}
}

func (s *SheetResource) Name() string { return s.name }

// Close releases the underlying workbook.
func (s *SheetResource) Close() error {
	return s.file.Close()
}

func (s *SheetResource) Columns() ([]string, error) {
	rows, err := s.file.Rows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", s.sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("sheet %s: no header row", s.sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header of sheet %s: %w", s.sheet, err)
	}
	return header, nil
}

func (s *SheetResource) Iterate(fn func(Row) (bool, error)) error {
	rows, err := s.file.Rows(s.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", s.sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("sheet %s: no header row", s.sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read header of sheet %s: %w", s.sheet, err)
	}
	index, err := buildIndex(s.name, header)
	if err != nil {
		return err
	}

	for rows.Next() {
		values, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read row of sheet %s: %w", s.sheet, err)
		}
		stop, err := fn(NewRow(header, index, values))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return rows.Error()
}
