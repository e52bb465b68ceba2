package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/etl"
	"github.com/cancervariants/evidence-normalization/internal/normalize"
)

func newTransformCmd() *cobra.Command {
	var (
		runHotspots   bool
		runCBioPortal bool
		runAll        bool
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform upstream datasets into servable artifacts",
		Long: `Transform upstream datasets into the flat artifacts the API serves.
Sources are downloaded into the data directory when absent, so the first run
needs network access; reruns reuse the local copies.

The cancer hotspots transform resolves every workbook row to a normalized
variant id through the variation normalizer, so EVIDENCE_NORMALIZER_URL must
point at a running instance.`,
		Example: `  evidence transform --all
  evidence transform --cancer-hotspots
  evidence transform --cbioportal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runAll {
				runHotspots, runCBioPortal = true, true
			}
			if !runHotspots && !runCBioPortal {
				return fmt.Errorf("nothing to do: pass --cancer-hotspots, --cbioportal, or --all")
			}
			return runTransform(runHotspots, runCBioPortal)
		},
	}

	cmd.Flags().BoolVar(&runHotspots, "cancer-hotspots", false, "Transform the Cancer Hotspots workbook")
	cmd.Flags().BoolVar(&runCBioPortal, "cbioportal", false, "Transform the MSK-IMPACT 2017 study")
	cmd.Flags().BoolVar(&runAll, "all", false, "Run every transform")
	return cmd
}

func runTransform(runHotspots, runCBioPortal bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx := contextWithInterrupt()

	if runHotspots {
		transform := etl.NewCancerHotspots(cfg.DataDir, normalize.NewClient(cfg.NormalizerURL))
		transform.SetLogger(logger)
		out, err := transform.Run(ctx)
		if err != nil {
			return fmt.Errorf("cancer hotspots transform: %w", err)
		}
		logger.Info("cancer hotspots transform complete", zap.String("artifact", out))
	}

	if runCBioPortal {
		transform := etl.NewCBioPortal(cfg.DataDir)
		transform.SetLogger(logger)
		mutations, caseLists, err := transform.Run(ctx)
		if err != nil {
			return fmt.Errorf("cbioportal transform: %w", err)
		}
		logger.Info("cbioportal transform complete",
			zap.String("mutations", mutations), zap.String("case_lists", caseLists))
	}
	return nil
}
