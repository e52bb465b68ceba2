package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the service configuration, gathered from EVIDENCE_* environment
// variables.
type Config struct {
	Port              string `envconfig:"EVIDENCE_PORT" default:"8000"`
	DataDir           string `envconfig:"EVIDENCE_DATA_DIR" default:"data"`
	CBioPortalBackend string `envconfig:"EVIDENCE_CBIOPORTAL_BACKEND" default:"stream"`
	GnomadAPI         string `envconfig:"EVIDENCE_GNOMAD_API" default:"https://gnomad.broadinstitute.org/api"`
	NormalizerURL     string `envconfig:"EVIDENCE_NORMALIZER_URL" default:"http://localhost:8001"`
	Debug             bool   `envconfig:"EVIDENCE_DEBUG" default:"false"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment config: %w", err)
	}
	switch cfg.CBioPortalBackend {
	case "stream", "duckdb":
	default:
		return Config{}, fmt.Errorf("EVIDENCE_CBIOPORTAL_BACKEND must be %q or %q, got %q",
			"stream", "duckdb", cfg.CBioPortalBackend)
	}
	return cfg, nil
}
