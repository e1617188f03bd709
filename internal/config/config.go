package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Identity    IdentityConfig            `json:"identity"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// StagingDir holds uploaded images between receipt and disposal.
	StagingDir string `json:"staging_dir"`
	// Timeouts in seconds for the two external adapter calls.
	OCRTimeout       int `json:"ocr_timeout"`
	SynthesisTimeout int `json:"synthesis_timeout"`
	// StagingSweepInterval in minutes for the orphaned-file sweeper.
	StagingSweepInterval int `json:"staging_sweep_interval"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// IdentityConfig points at the external identity provider that verifies
// bearer tokens for us.
type IdentityConfig struct {
	BaseURL    string `json:"base_url"`
	ServiceKey string `json:"service_key"`
}

// ProviderConfig configures one generative-model provider for guide
// synthesis.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyEnvOverrides()

	if cfg.Identity.BaseURL == "" {
		return nil, fmt.Errorf("identity base_url must be configured")
	}

	return &cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of
// the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOTIVATE_IDENTITY_URL"); v != "" {
		c.Identity.BaseURL = v
	}
	if v := os.Getenv("NOTIVATE_IDENTITY_SERVICE_KEY"); v != "" {
		c.Identity.ServiceKey = v
	}
	for name, prov := range c.Providers {
		if prov.APIKey != "" {
			continue
		}
		switch name {
		case "openai":
			prov.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			prov.APIKey = os.Getenv("GEMINI_API_KEY")
		case "claude":
			prov.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		c.Providers[name] = prov
	}
}
