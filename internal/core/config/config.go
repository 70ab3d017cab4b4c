package config

import (
	"time"

	"github.com/scoregate/scoregate/internal/gateway/quota"
	redisclient "github.com/scoregate/scoregate/internal/infra/redis"
	"github.com/scoregate/scoregate/internal/infra/upstream"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Upstream upstream.Config    `yaml:"upstream"`
	Redis    redisclient.Config `yaml:"redis"`
	Quota    quota.Config       `yaml:"quota"`
	Gateway  GatewayConfig      `yaml:"gateway"`
	Storage  StorageConfig      `yaml:"storage"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// GatewayConfig holds fetch-path tuning.
type GatewayConfig struct {
	DedupWindow time.Duration `yaml:"dedup_window"`
	// MinParticipants is the completeness floor for persisting a final
	// box score.
	MinParticipants int `yaml:"min_participants"`
}

// StorageConfig holds durable-tier paths.
type StorageConfig struct {
	ArtifactDir   string `yaml:"artifact_dir"`
	QuotaSnapshot string `yaml:"quota_snapshot"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
