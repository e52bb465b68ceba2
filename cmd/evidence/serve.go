package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/datasource/cancerhotspots"
	"github.com/cancervariants/evidence-normalization/internal/datasource/cbioportal"
	"github.com/cancervariants/evidence-normalization/internal/datasource/gnomad"
	"github.com/cancervariants/evidence-normalization/internal/server"
	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the evidence HTTP API",
		Long: `Serve the evidence HTTP API. Configuration comes from EVIDENCE_*
environment variables; data artifacts are read from the data directory. An
endpoint whose artifact is missing answers 503 until the artifact is prepared
with "evidence transform" or "evidence download".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	hotspots, err := hotspotSource(cfg, logger)
	if err != nil {
		return err
	}
	summaries, err := summarySource(cfg, logger)
	if err != nil {
		return err
	}

	frequencies := gnomad.NewWithAPI(cfg.GnomadAPI)
	frequencies.SetLogger(logger)

	srv := server.New(version, hotspots, summaries, frequencies)
	srv.SetLogger(logger)

	logger.Info("serving evidence API",
		zap.String("port", cfg.Port),
		zap.String("data_dir", cfg.DataDir),
		zap.String("cbioportal_backend", cfg.CBioPortalBackend))
	return srv.Start(cfg.Port)
}

// hotspotSource loads the latest transformed hotspots artifact. Artifact
// names embed a YYYYMMDD date, so lexicographic order is date order.
func hotspotSource(cfg server.Config, logger *zap.Logger) (server.HotspotSource, error) {
	paths, err := filepath.Glob(filepath.Join(cfg.DataDir, "cancer_hotspots_*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan data directory: %w", err)
	}
	if len(paths) == 0 {
		logger.Warn("no cancer hotspots artifact found, endpoint disabled",
			zap.String("data_dir", cfg.DataDir))
		return nil, nil
	}
	sort.Strings(paths)
	latest := paths[len(paths)-1]

	store, err := cancerhotspots.NewFromJSON(latest)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger)
	logger.Info("loaded cancer hotspots artifact", zap.String("path", latest))
	return store, nil
}

func summarySource(cfg server.Config, logger *zap.Logger) (server.SummarySource, error) {
	mutationsPath := filepath.Join(cfg.DataDir, "msk_impact_2017_mutations.csv")
	caseListsPath := filepath.Join(cfg.DataDir, "msk_impact_2017_case_lists.csv")

	missing := false
	for _, path := range []string{mutationsPath, caseListsPath} {
		if !fileExists(path) {
			logger.Warn("cbioportal artifact missing, endpoint disabled", zap.String("path", path))
			missing = true
		}
	}
	if missing {
		return nil, nil
	}

	open := func(path string) (tabular.Resource, error) {
		if cfg.CBioPortalBackend == "duckdb" {
			return tabular.OpenDuckDBResource(path, ",", 0)
		}
		return tabular.NewCSVResource(path), nil
	}
	mutations, err := open(mutationsPath)
	if err != nil {
		return nil, err
	}
	caseLists, err := open(caseListsPath)
	if err != nil {
		return nil, err
	}
	store := cbioportal.New(mutations, caseLists)
	store.SetLogger(logger)
	return store, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
