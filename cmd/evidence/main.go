// Package main provides the evidence command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cancervariants/evidence-normalization/internal/server"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evidence",
		Short:   "Normalize evidence for cancer variants",
		Version: fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Long: `evidence serves and prepares normalized evidence for cancer variants:
mutation hotspots from Cancer Hotspots, per-tumor-type mutation summaries
from the cBioPortal MSK-IMPACT 2017 study, and population frequencies from
gnomAD.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initViperConfig()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTransformCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// initViperConfig wires ~/.evidence.yaml into viper. A missing file is fine.
func initViperConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigName(".evidence")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(home)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// applyConfigFile layers ~/.evidence.yaml values under the environment: a
// file value applies only while the matching EVIDENCE_* variable is unset.
func applyConfigFile(cfg *server.Config) {
	for _, binding := range []struct {
		key string
		env string
		dst *string
	}{
		{"port", "EVIDENCE_PORT", &cfg.Port},
		{"data_dir", "EVIDENCE_DATA_DIR", &cfg.DataDir},
		{"cbioportal_backend", "EVIDENCE_CBIOPORTAL_BACKEND", &cfg.CBioPortalBackend},
		{"gnomad_api", "EVIDENCE_GNOMAD_API", &cfg.GnomadAPI},
		{"normalizer_url", "EVIDENCE_NORMALIZER_URL", &cfg.NormalizerURL},
	} {
		if _, set := os.LookupEnv(binding.env); set {
			continue
		}
		if viper.IsSet(binding.key) {
			*binding.dst = viper.GetString(binding.key)
		}
	}
}

func loadConfig() (server.Config, error) {
	cfg, err := server.LoadConfig()
	if err != nil {
		return server.Config{}, err
	}
	applyConfigFile(&cfg)
	return cfg, nil
}
