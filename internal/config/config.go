package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models taxi-reports.yml.
type Config struct {
	Ledger struct {
		BaseURL  string `yaml:"base_url"`
		Login    string `yaml:"login"`
		Password string `yaml:"password"`
	} `yaml:"ledger"`
	Platform struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"platform"`
	Parks  []Park `yaml:"parks"`
	Roster struct {
		ExcludedDepartments []string `yaml:"excluded_departments"`
	} `yaml:"roster"`
	Report struct {
		Path string `yaml:"path"`
	} `yaml:"report"`
	Cache struct {
		RedisAddr  string `yaml:"redis_addr"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`
}

// Park holds credentials for one fleet account on the platform.
type Park struct {
	ParkID   string `yaml:"park_id"`
	ClientID string `yaml:"client_id"`
	APIKey   string `yaml:"api_key"`
}

// Load reads and validates config from a workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with taxi-reports config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("config.ledger.base_url is required")
	}
	if c.Ledger.Login == "" || c.Ledger.Password == "" {
		return fmt.Errorf("config.ledger.login and config.ledger.password are required")
	}
	if c.Platform.BaseURL == "" {
		return fmt.Errorf("config.platform.base_url is required")
	}
	if len(c.Parks) == 0 {
		return fmt.Errorf("config.parks must list at least one park")
	}
	for i, park := range c.Parks {
		if park.ParkID == "" {
			return fmt.Errorf("config.parks[%d].park_id is required", i)
		}
		if park.ClientID == "" || park.APIKey == "" {
			return fmt.Errorf("config.parks[%d] needs client_id and api_key", i)
		}
	}
	if c.Report.Path == "" {
		return fmt.Errorf("config.report.path is required")
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config.cache.ttl_seconds must not be negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taxi-reports.yml")
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `ledger:
  base_url: https://taksi.0nalog.com:1703/globus-taxi/hs
  login: ""
  password: ""

platform:
  base_url: https://fleet-api.taxi.yandex.net

parks:
  - park_id: ""
    client_id: ""
    api_key: ""
  - park_id: ""
    client_id: ""
    api_key: ""

roster:
  excluded_departments:
    - "Краснодар"
    - "Глобус"
    - "МСК"

report:
  path: orders_report.csv

cache:
  redis_addr: ""
  ttl_seconds: 300
`
