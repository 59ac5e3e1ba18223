// Package config loads server configuration from files and the
// environment.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// RateLimit controls the per-user daily message quota. The count is
// always tracked; enforcement is a policy switch so the entitlement
// check can be turned on without a code change.
type RateLimit struct {
	PerDay  int  `json:"perDay" yaml:"perDay"`
	Enforce bool `json:"enforce" yaml:"enforce"`
}

// ProviderConfig holds credentials for one model provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" yaml:"apiKey"`
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
}

// Config is the full server configuration.
type Config struct {
	Port    int    `json:"port" yaml:"port"`
	DataDir string `json:"dataDir" yaml:"dataDir"`

	// AuthSecret signs and verifies session tokens.
	AuthSecret string `json:"authSecret" yaml:"authSecret"`

	// ThreadsServiceURL is the base URL of the navigator/threads
	// companion service. Empty disables companion notifications.
	ThreadsServiceURL string `json:"threadsServiceUrl" yaml:"threadsServiceUrl"`

	// ResumeEnabled turns on the resumable stream registry.
	ResumeEnabled bool `json:"resumeEnabled" yaml:"resumeEnabled"`

	// DefaultModel is "provider/model", used for title generation and
	// as the fallback when a request names no model.
	DefaultModel string `json:"defaultModel" yaml:"defaultModel"`

	Provider  map[string]ProviderConfig `json:"provider" yaml:"provider"`
	RateLimit RateLimit                 `json:"rateLimit" yaml:"rateLimit"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogPretty bool   `json:"logPretty" yaml:"logPretty"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Port:     3080,
		DataDir:  defaultDataDir(),
		Provider: make(map[string]ProviderConfig),
		RateLimit: RateLimit{
			PerDay:  100,
			Enforce: false,
		},
		LogLevel: "info",
	}
}

// Load builds configuration from, in priority order: defaults, an
// arbor.json/arbor.jsonc/arbor.yaml file in dir, then environment
// variables.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if dir != "" {
		for _, name := range []string{"arbor.json", "arbor.jsonc", "arbor.yaml", "arbor.yml"} {
			if err := loadFile(filepath.Join(dir, name), cfg); err != nil && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ARBOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("ARBOR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ARBOR_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("THREADS_SERVICE_URL"); v != "" {
		cfg.ThreadsServiceURL = v
	}
	if v := os.Getenv("ARBOR_RESUME_ENABLED"); v != "" {
		cfg.ResumeEnabled = v == "1" || v == "true"
	}
	if v := os.Getenv("ARBOR_DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("ARBOR_RATE_LIMIT_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerDay = n
		}
	}
	if v := os.Getenv("ARBOR_RATE_LIMIT_ENFORCE"); v != "" {
		cfg.RateLimit.Enforce = v == "1" || v == "true"
	}
	if v := os.Getenv("ARBOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	for id, env := range map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	} {
		if key := os.Getenv(env); key != "" {
			pc := cfg.Provider[id]
			pc.APIKey = key
			cfg.Provider[id] = pc
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arbor"
	}
	return filepath.Join(home, ".arbor", "data")
}
