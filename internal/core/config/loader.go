package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/scoregate/scoregate/internal/gateway/quota"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}
	if cfg.Quota.Capacity == 0 {
		cfg.Quota = quota.DefaultConfig()
	}
	if cfg.Gateway.DedupWindow == 0 {
		cfg.Gateway.DedupWindow = 30 * time.Second
	}
	if cfg.Gateway.MinParticipants == 0 {
		cfg.Gateway.MinParticipants = 8
	}
	if cfg.Storage.ArtifactDir == "" {
		cfg.Storage.ArtifactDir = "data/artifacts"
	}
	if cfg.Storage.QuotaSnapshot == "" {
		cfg.Storage.QuotaSnapshot = "data/quota.json"
	}
}
