package etl

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/fetch"
)

// DefaultStudyURL is the cBioPortal datahub archive of the MSK-IMPACT 2017
// study.
const DefaultStudyURL = "https://cbioportal-datahub.s3.amazonaws.com/msk_impact_2017.tar.gz"

const studyName = "msk_impact_2017"

// CBioPortal transforms the MSK-IMPACT 2017 study archive into the two CSVs
// the query path reads: the mutation table and the case-list table.
type CBioPortal struct {
	dataDir  string
	studyURL string
	logger   *zap.Logger
}

// NewCBioPortal builds the transform rooted at dataDir.
func NewCBioPortal(dataDir string) *CBioPortal {
	return &CBioPortal{
		dataDir:  dataDir,
		studyURL: DefaultStudyURL,
		logger:   zap.NewNop(),
	}
}

// SetStudyURL overrides the study archive source.
func (t *CBioPortal) SetStudyURL(url string) {
	t.studyURL = url
}

// SetLogger sets the logger for progress reporting.
func (t *CBioPortal) SetLogger(l *zap.Logger) {
	t.logger = l
}

// Run downloads and unpacks the study if absent, then writes the mutations
// and case-lists CSVs under the data directory. It returns both paths.
func (t *CBioPortal) Run(ctx context.Context) (mutationsPath, caseListsPath string, err error) {
	studyDir := filepath.Join(t.dataDir, studyName)
	if _, statErr := os.Stat(studyDir); errors.Is(statErr, os.ErrNotExist) {
		t.logger.Info("downloading study archive", zap.String("url", t.studyURL))
		if err := fetch.TarGz(ctx, t.studyURL, t.dataDir); err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	} else if statErr != nil {
		return "", "", fmt.Errorf("stat %s: %w", studyDir, statErr)
	}

	mutationsPath = filepath.Join(t.dataDir, studyName+"_mutations.csv")
	if err := t.transformMutations(filepath.Join(studyDir, "data_mutations.txt"), mutationsPath); err != nil {
		return "", "", err
	}
	caseListsPath = filepath.Join(t.dataDir, studyName+"_case_lists.csv")
	if err := t.transformCaseLists(filepath.Join(studyDir, "case_lists"), caseListsPath); err != nil {
		return "", "", err
	}
	return mutationsPath, caseListsPath, nil
}

// transformMutations rewrites the tab-separated mutation table as CSV through
// DuckDB, dropping the "#"-prefixed preamble.
func (t *CBioPortal) transformMutations(src, dest string) error {
	skip, err := countCommentLines(src)
	if err != nil {
		return err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		`COPY (SELECT * FROM read_csv('%s', delim='\t', header=true, skip=%d, all_varchar=true)) TO '%s' (HEADER, DELIMITER ',')`,
		src, skip, dest,
	)
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("transform %s: %w", filepath.Base(src), err)
	}
	t.logger.Info("wrote mutations artifact", zap.String("path", dest))
	return nil
}

func countCommentLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), "#") {
			break
		}
		n++
	}
	return n, scanner.Err()
}

// transformCaseLists flattens the per-tumor-type case_list_*.txt files into
// one CSV. Each source file is a series of "key: value" lines; the study
// identifier line is dropped, everything else becomes a column.
func (t *CBioPortal) transformCaseLists(caseListsDir, dest string) error {
	paths, err := filepath.Glob(filepath.Join(caseListsDir, "case_list_*.txt"))
	if err != nil {
		return fmt.Errorf("scan %s: %w", caseListsDir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no case list files under %s", caseListsDir)
	}
	sort.Strings(paths)

	var columns []string
	seen := make(map[string]bool)
	records := make([]map[string]string, 0, len(paths))
	for _, path := range paths {
		record, err := parseCaseList(path)
		if err != nil {
			return err
		}
		for _, key := range record.keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
		records = append(records, record.values)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = record[column]
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	t.logger.Info("wrote case lists artifact",
		zap.String("path", dest), zap.Int("case_lists", len(records)))
	return nil
}

type caseListRecord struct {
	keys   []string
	values map[string]string
}

func parseCaseList(path string) (caseListRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return caseListRecord{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	record := caseListRecord{values: make(map[string]string)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, found := strings.Cut(line, ": ")
		if !found {
			return caseListRecord{}, fmt.Errorf("case list %s: line %q is not \"key: value\"", path, line)
		}
		if key == "cancer_study_identifier" {
			continue
		}
		record.keys = append(record.keys, key)
		record.values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return caseListRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	return record, nil
}
