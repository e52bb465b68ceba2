package tabular

// MemoryResource is a resource loaded wholesale into memory. Rows keep the
// order they were added in.
type MemoryResource struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewMemoryResource creates an in-memory resource with the given header.
func NewMemoryResource(name string, columns []string, rows [][]string) (*MemoryResource, error) {
	index, err := buildIndex(name, columns)
	if err != nil {
		return nil, err
	}
	return &MemoryResource{
		name:    name,
		columns: columns,
		index:   index,
		rows:    rows,
	}, nil
}

func (m *MemoryResource) Name() string { return m.name }

func (m *MemoryResource) Columns() ([]string, error) {
	return m.columns, nil
}

func (m *MemoryResource) Iterate(fn func(Row) (bool, error)) error {
	for _, values := range m.rows {
		stop, err := fn(NewRow(m.columns, m.index, values))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}
