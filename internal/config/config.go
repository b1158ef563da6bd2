// Package config holds the service-level configuration: job directories,
// upload limits, storage backend selection, and connection info for the
// Redis lock that serializes the dedup store's load-mutate-save cycle
// across concurrently running jobs. The three domain JSON documents
// (rules/columns/settings) are a separate, job-scoped concern handled by
// internal/jobconfig.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ServerConfig holds host/port settings. No command in this repository
// starts an HTTP server with them.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection, matching the
// teacher's container-awareness idiom.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// JobsConfig holds the batch-pipeline's working directories and limits
// (§6 external interfaces).
type JobsConfig struct {
	IncomingDir          string `yaml:"incoming_dir"`
	ProcessingDir        string `yaml:"processing_dir"`
	OutputDir            string `yaml:"output_dir"`
	RulesPath            string `yaml:"rules_path"`
	ColumnsMetadataPath  string `yaml:"columns_metadata_path"`
	SettingsPath         string `yaml:"settings_path"`
	DedupStorePath       string `yaml:"dedup_store_path"`
	MaxUploadSizeMB      int    `yaml:"max_upload_size_mb"`
}

// MaxUploadSize returns the configured upload size limit in bytes.
func (c JobsConfig) MaxUploadSize() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// StorageConfig selects and configures the backing store for input/output
// files: local disk or S3 (§9's DOMAIN STACK ingest/egress alternative).
type StorageConfig struct {
	Type       string `yaml:"type"` // "local" or "s3"
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"` // empty uses the default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override,
// matching the teacher's ECS/Lambda IAM-role-preferred idiom.
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// RedisConfig configures the Redis connection that dedupectl's
// run_matching uses for its distlock.RedisLock around the dedup store,
// shared by concurrently running jobs (§5).
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	DB             int    `yaml:"db"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured Redis operation timeout as a duration.
func (c RedisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file, filling in defaults for
// anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Jobs.IncomingDir == "" {
		cfg.Jobs.IncomingDir = "./data/incoming"
	}
	if cfg.Jobs.ProcessingDir == "" {
		cfg.Jobs.ProcessingDir = "./data/processing"
	}
	if cfg.Jobs.OutputDir == "" {
		cfg.Jobs.OutputDir = "./data/output"
	}
	if cfg.Jobs.RulesPath == "" {
		cfg.Jobs.RulesPath = "./config/rules.json"
	}
	if cfg.Jobs.ColumnsMetadataPath == "" {
		cfg.Jobs.ColumnsMetadataPath = "./config/columns_metadata.json"
	}
	if cfg.Jobs.SettingsPath == "" {
		cfg.Jobs.SettingsPath = "./config/settings.json"
	}
	if cfg.Jobs.DedupStorePath == "" {
		cfg.Jobs.DedupStorePath = "./data/dedup_mapping.json"
	}
	if cfg.Jobs.MaxUploadSizeMB == 0 {
		cfg.Jobs.MaxUploadSizeMB = 50 // §5 Timeouts: default 50 MiB upload limit.
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Redis.TimeoutSeconds == 0 {
		cfg.Redis.TimeoutSeconds = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides. It
// automatically loads a .env file (if present) before reading env vars, so
// secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DEDUPE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "s3"
	}
	if v := os.Getenv("DEDUPE_S3_REGION"); v != "" {
		cfg.Storage.S3Region = v
	}
	if v := os.Getenv("DEDUPE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("DEDUPE_DEDUP_STORE_PATH"); v != "" {
		cfg.Jobs.DedupStorePath = v
	}

	return cfg, nil
}
