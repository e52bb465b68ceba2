package etl

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStudy(t *testing.T, dataDir string) {
	t.Helper()
	studyDir := filepath.Join(dataDir, studyName)
	require.NoError(t, os.MkdirAll(filepath.Join(studyDir, "case_lists"), 0o755))

	mutations := strings.Join([]string{
		"#version 2.4",
		"#genome GRCh37",
		"Hugo_Symbol\tTumor_Sample_Barcode",
		"BRAF\tP-0001",
		"KRAS\tP-0002",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(studyDir, "data_mutations.txt"), []byte(mutations), 0o644))

	colon := strings.Join([]string{
		"cancer_study_identifier: msk_impact_2017",
		"stable_id: msk_impact_2017_Colon",
		"case_list_name: MSK-IMPACT: Colon Cancer",
		"case_list_description: All colon cases",
		"case_list_ids: P-0001\tP-0003",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(studyDir, "case_lists", "case_list_colon.txt"), []byte(colon), 0o644))

	melanoma := strings.Join([]string{
		"cancer_study_identifier: msk_impact_2017",
		"stable_id: msk_impact_2017_Melanoma",
		"case_list_name: MSK-IMPACT: Melanoma",
		"case_list_description: All melanoma cases",
		"case_list_ids: P-0002",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(studyDir, "case_lists", "case_list_melanoma.txt"), []byte(melanoma), 0o644))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCBioPortal_Run(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)

	mutationsPath, caseListsPath, err := NewCBioPortal(dir).Run(context.Background())
	require.NoError(t, err)

	mutations := readCSV(t, mutationsPath)
	require.Len(t, mutations, 3, "preamble lines must be dropped")
	assert.Equal(t, []string{"Hugo_Symbol", "Tumor_Sample_Barcode"}, mutations[0])
	assert.Equal(t, []string{"BRAF", "P-0001"}, mutations[1])

	caseLists := readCSV(t, caseListsPath)
	require.Len(t, caseLists, 3)
	assert.Equal(t,
		[]string{"stable_id", "case_list_name", "case_list_description", "case_list_ids"},
		caseLists[0], "study identifier must not become a column")
	assert.Equal(t, "MSK-IMPACT: Colon Cancer", caseLists[1][1])
	assert.Equal(t, "P-0001\tP-0003", caseLists[1][3], "sample ids stay tab-joined")
	assert.Equal(t, "MSK-IMPACT: Melanoma", caseLists[2][1])
}

func TestCBioPortal_RerunOverwritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)

	transform := NewCBioPortal(dir)
	_, _, err := transform.Run(context.Background())
	require.NoError(t, err)
	mutationsPath, _, err := transform.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, readCSV(t, mutationsPath), 3)
}

func TestCBioPortal_MalformedCaseListLine(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)
	bad := filepath.Join(dir, studyName, "case_lists", "case_list_bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("stable_id=broken\n"), 0o644))

	_, _, err := NewCBioPortal(dir).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `not "key: value"`)
	assert.Contains(t, err.Error(), "case_list_bad.txt")

	// The mutations rewrite runs first and must have completed; only the
	// case-list flattening rejects the malformed file.
	mutations := readCSV(t, filepath.Join(dir, studyName+"_mutations.csv"))
	assert.Len(t, mutations, 3)
	assert.NoFileExists(t, filepath.Join(dir, studyName+"_case_lists.csv"))
}

func TestCBioPortal_UpstreamUnavailable(t *testing.T) {
	transform := NewCBioPortal(t.TempDir())
	transform.SetStudyURL("http://127.0.0.1:0/msk_impact_2017.tar.gz")

	_, _, err := transform.Run(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
