// Package config loads runtime configuration from the environment, an
// optional .env file and an optional config.yaml override. The loaded value
// is passed explicitly into every component; nothing here is a global.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/vulnmgt/riskboard-backend/util"
	yaml "gopkg.in/yaml.v2"
)

// Arango holds the database connection settings
type Arango struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// Feeds holds the upstream feed endpoints consumed by the ingest connectors
type Feeds struct {
	KEVURL         string `yaml:"kev_url"`
	KEVFallbackURL string `yaml:"kev_fallback_url"`
	EPSSBaseURL    string `yaml:"epss_base_url"`
	NVDAPIURL      string `yaml:"nvd_api_url"`
	NVDAPIKey      string `yaml:"nvd_api_key"`
	NVDDaysBack    int    `yaml:"nvd_days_back"`
}

// Server holds the HTTP API settings
type Server struct {
	Port   string `yaml:"port"`
	APIKey string `yaml:"api_key"` // guards the mutating pipeline routes when set
}

// Config is the full runtime configuration
type Config struct {
	Arango Arango `yaml:"arango"`
	Feeds  Feeds  `yaml:"feeds"`
	Server Server `yaml:"server"`
}

// Default feed endpoints (same sources the catalogs publish)
const (
	DefaultKEVURL         = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	DefaultKEVFallbackURL = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"
	DefaultEPSSBaseURL    = "https://epss.empiricalsecurity.com"
	DefaultNVDAPIURL      = "https://services.nvd.nist.gov/rest/json/cves/2.0"
)

// Load reads .env (when present), then the environment, then overlays the
// yaml file named by RISKBOARD_CONFIG (default "config.yaml") when it exists.
func Load() (Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	host := util.GetEnvDefault("ARANGO_HOST", "localhost")
	port := util.GetEnvDefault("ARANGO_PORT", "8529")

	cfg := Config{
		Arango: Arango{
			Host:     host,
			Port:     port,
			User:     util.GetEnvDefault("ARANGO_USER", "root"),
			Password: util.GetEnvDefault("ARANGO_PASS", "mypassword"),
			URL:      util.GetEnvDefault("ARANGO_URL", "http://"+host+":"+port),
			Database: util.GetEnvDefault("ARANGO_DB", "vulnmgt"),
		},
		Feeds: Feeds{
			KEVURL:         util.GetEnvDefault("KEV_URL", DefaultKEVURL),
			KEVFallbackURL: util.GetEnvDefault("KEV_FALLBACK_URL", DefaultKEVFallbackURL),
			EPSSBaseURL:    util.GetEnvDefault("EPSS_BASE_URL", DefaultEPSSBaseURL),
			NVDAPIURL:      util.GetEnvDefault("NVD_API_URL", DefaultNVDAPIURL),
			NVDAPIKey:      util.GetEnvDefault("NVD_API_KEY", ""),
			NVDDaysBack:    365,
		},
		Server: Server{
			Port:   util.GetEnvDefault("RISKBOARD_PORT", "8080"),
			APIKey: util.GetEnvDefault("RISKBOARD_API_KEY", ""),
		},
	}

	path := util.GetEnvDefault("RISKBOARD_CONFIG", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	return cfg, nil
}
