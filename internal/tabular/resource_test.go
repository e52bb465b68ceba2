package tabular

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// testTable is the dataset shared by every backing. The two Q61 rows exercise
// first-match semantics.
var (
	testColumns = []string{"vrs_identifier", "Hugo_Symbol", "Mutation_Count"}
	testRows    = [][]string{
		{"ga4gh:VA.one", "BRAF", "897"},
		{"ga4gh:VA.two", "KRAS", "412"},
		{"ga4gh:VA.two", "NRAS", "99"},
	}
)

// backings constructs the same table under every resource implementation.
func backings(t *testing.T) map[string]Resource {
	t.Helper()
	dir := t.TempDir()

	mem, err := NewMemoryResource("mem", testColumns, testRows)
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "table.csv")
	writeCSV(t, csvPath, false)
	gzPath := filepath.Join(dir, "table.csv.gz")
	writeCSV(t, gzPath, true)

	xlsxPath := filepath.Join(dir, "table.xlsx")
	writeWorkbook(t, xlsxPath)
	sheet, err := OpenSheet(xlsxPath, "SNV-hotspots")
	require.NoError(t, err)
	t.Cleanup(func() { sheet.Close() })

	return map[string]Resource{
		"memory":       mem,
		"csv":          NewCSVResource(csvPath),
		"csv-gzip":     NewCSVResource(gzPath),
		"workbook":     sheet,
	}
}

func writeCSV(t *testing.T, path string, zipped bool) {
	t.Helper()
	content := "vrs_identifier,Hugo_Symbol,Mutation_Count\n" +
		"ga4gh:VA.one,BRAF,897\n" +
		"ga4gh:VA.two,KRAS,412\n" +
		"ga4gh:VA.two,NRAS,99\n"
	if zipped {
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())
		return
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	_, err := f.NewSheet("SNV-hotspots")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("SNV-hotspots", "A1", &[]any{"vrs_identifier", "Hugo_Symbol", "Mutation_Count"}))
	for i, row := range testRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		require.NoError(t, f.SetSheetRow("SNV-hotspots", cell, &vals))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestFindRow(t *testing.T) {
	for name, r := range backings(t) {
		t.Run(name, func(t *testing.T) {
			m, err := FindRow(r, "vrs_identifier", "ga4gh:VA.one")
			require.NoError(t, err)
			require.True(t, m.Found)
			gene, ok := m.Row.Get("Hugo_Symbol")
			assert.True(t, ok)
			assert.Equal(t, "BRAF", gene)
			count, _ := m.Row.Get("Mutation_Count")
			assert.Equal(t, "897", count)
		})
	}
}

func TestFindRow_FirstMatch(t *testing.T) {
	for name, r := range backings(t) {
		t.Run(name, func(t *testing.T) {
			m, err := FindRow(r, "vrs_identifier", "ga4gh:VA.two")
			require.NoError(t, err)
			require.True(t, m.Found)
			gene, _ := m.Row.Get("Hugo_Symbol")
			assert.Equal(t, "KRAS", gene, "first matching row wins")
		})
	}
}

func TestFindRow_NotFound(t *testing.T) {
	for name, r := range backings(t) {
		t.Run(name, func(t *testing.T) {
			m, err := FindRow(r, "vrs_identifier", "ga4gh:VA.unknown")
			require.NoError(t, err, "a miss is not an error")
			assert.False(t, m.Found)
		})
	}
}

func TestFindRow_MissingKeyColumn(t *testing.T) {
	for name, r := range backings(t) {
		t.Run(name, func(t *testing.T) {
			_, err := FindRow(r, "Nonexistent_Column", "x")
			var sm *SchemaMismatchError
			require.ErrorAs(t, err, &sm)
			assert.Equal(t, "Nonexistent_Column", sm.Column)
		})
	}
}

func TestDuplicateHeaderColumns(t *testing.T) {
	_, err := NewMemoryResource("dup", []string{"a", "b", "a"}, nil)
	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Contains(t, sm.Error(), "duplicate")
}

func TestRow_ShortRecord(t *testing.T) {
	index, err := buildIndex("short", []string{"a", "b", "c"})
	require.NoError(t, err)
	row := NewRow([]string{"a", "b", "c"}, index, []string{"1"})
	v, ok := row.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestDelimitedResource_SkipLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data_mutations.txt")
	content := "#version 2.4\n" +
		"Hugo_Symbol\tTumor_Sample_Barcode\n" +
		"BRAF\tP-0001\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewTSVResource(path)
	r.SetSkipLines(1)
	cols, err := r.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"Hugo_Symbol", "Tumor_Sample_Barcode"}, cols)

	m, err := FindRow(r, "Hugo_Symbol", "BRAF")
	require.NoError(t, err)
	require.True(t, m.Found)
	barcode, _ := m.Row.Get("Tumor_Sample_Barcode")
	assert.Equal(t, "P-0001", barcode)
}
