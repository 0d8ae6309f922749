package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Limits  Limits  `mapstructure:"limits"`
	Storage Storage `mapstructure:"storage"`
	Tools   Tools   `mapstructure:"tools"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Retry   Retry   `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Limits bounds the resources a single request may consume.
type Limits struct {
	MaxFileSize     int64         `mapstructure:"max_file_size"`    // source size ceiling in bytes
	DownloadTimeout time.Duration `mapstructure:"download_timeout"` // per-download deadline
	TempDir         string        `mapstructure:"temp_dir"`         // empty means the system temp dir
}

// Storage holds configuration for the object storage backend.
// Credentials come from the environment, never from source.
type Storage struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	BucketName string        `mapstructure:"bucket_name"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	LinkExpiry time.Duration `mapstructure:"link_expiry"` // presigned link lifetime
}

// Tools holds configuration for external binaries.
type Tools struct {
	Ghostscript string `mapstructure:"ghostscript"` // gs binary path, empty disables it
}

// Kafka holds configuration for the operation event queue.
// An empty broker list disables event publishing.
type Kafka struct {
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration for event publishing.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":    "STORAGE_ENDPOINT",
		"storage.access_key":  "STORAGE_ACCESS_KEY",
		"storage.secret_key":  "STORAGE_SECRET_KEY",
		"storage.bucket_name": "STORAGE_BUCKET",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	if cfg.Limits.MaxFileSize == 0 {
		cfg.Limits.MaxFileSize = 150 << 20
	}
	if cfg.Limits.DownloadTimeout == 0 {
		cfg.Limits.DownloadTimeout = 30 * time.Second
	}
	if cfg.Storage.LinkExpiry == 0 {
		cfg.Storage.LinkExpiry = 24 * time.Hour
	}

	return &cfg
}
