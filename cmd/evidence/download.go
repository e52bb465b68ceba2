package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/fetch"
)

func newDownloadCmd() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download prepared evidence artifacts from S3",
		Long: `Download prepared evidence artifacts from the public S3 bucket instead
of transforming the upstream datasets locally. This fetches the latest
cancer hotspots JSON and the MSK-IMPACT 2017 study CSVs into the data
directory.`,
		Example: `  evidence download
  evidence download --bucket my-mirror`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(bucket)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", fetch.DefaultBucket, "S3 bucket holding the artifacts")
	return cmd
}

func runDownload(bucket string) error {
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

	client, err := fetch.NewS3(ctx, bucket)
	if err != nil {
		return err
	}

	hotspotsKey, err := client.LatestKey(ctx, fetch.CancerHotspotsPrefix)
	if err != nil {
		return err
	}
	keys := []string{hotspotsKey, fetch.CBioPortalMutationsKey, fetch.CBioPortalCaseListsKey}
	for _, key := range keys {
		dest, err := client.Download(ctx, key, cfg.DataDir)
		if err != nil {
			return err
		}
		logger.Info("downloaded artifact", zap.String("key", key), zap.String("path", dest))
	}
	return nil
}

// contextWithInterrupt returns a context cancelled on SIGINT.
func contextWithInterrupt() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt)
	return ctx
}
