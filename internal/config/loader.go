package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "AGENT_CONFIG"

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in that order.
//
// Empty project, location, staging bucket and credentials are accepted here;
// they fail later when the model or the search provider is called.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the explicit path, then $AGENT_CONFIG, then
// ./config.yaml if it exists. Empty means no file.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile parses path into cfg. Fields absent from the file keep their
// current values. A safety_settings block replaces the defaults as a whole.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	defaults := cfg.Model.SafetySettings
	cfg.Model.SafetySettings = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Model.SafetySettings == nil {
		cfg.Model.SafetySettings = defaults
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"APP_NAME", &cfg.AppName},
		{"GOOGLE_CLOUD_PROJECT", &cfg.ProjectID},
		{"GOOGLE_CLOUD_LOCATION", &cfg.Location},
		{"STAGING_BUCKET", &cfg.StagingBucket},
		{"MODEL_BACKEND", &cfg.Backend},
		{"GOOGLE_API_KEY", &cfg.GoogleAPIKey},
		{"TAVILY_API_KEY", &cfg.Search.APIKey},
		{"TAVILY_ENDPOINT", &cfg.Search.Endpoint},
		{"MODEL_NAME", &cfg.Model.Name},
		{"AGENT_DISPLAY_NAME", &cfg.Agent.DisplayName},
		{"PORT", &cfg.Server.Port},
		{"LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("AGENT_DEPLOY"); v != "" {
		cfg.Agent.Deploy = v == "1" || strings.EqualFold(v, "true")
	}
}

// resolveFileReferences fills credential fields from their _file variants
// when the value itself is empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Search.APIKeyFile != "" && cfg.Search.APIKey == "" {
		val, err := readSecretFile(cfg.Search.APIKeyFile)
		if err != nil {
			return fmt.Errorf("search.api_key_file: %w", err)
		}
		cfg.Search.APIKey = val
	}
	if cfg.GoogleAPIKeyFile != "" && cfg.GoogleAPIKey == "" {
		val, err := readSecretFile(cfg.GoogleAPIKeyFile)
		if err != nil {
			return fmt.Errorf("google_api_key_file: %w", err)
		}
		cfg.GoogleAPIKey = val
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
