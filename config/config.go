package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mitchwire/mitch"
)

type Config struct {
	Mitchwire MitchwireConfig `yaml:"mitchwire"`
	Server    ServerConfig    `yaml:"server"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type MitchwireConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Listen          string          `yaml:"listen"`
	ProviderID      uint16          `yaml:"provider_id"`
	MaxMessageBytes int             `yaml:"max_message_bytes"`
	ReadRate        ReadRateConfig  `yaml:"read_rate"`
	WebSocket       WebSocketConfig `yaml:"websocket"`
}

// ReadRateConfig bounds how fast a single connection may deliver
// messages. Zero disables the limiter.
type ReadRateConfig struct {
	MessagesPerSecond int `yaml:"messages_per_second"`
	Burst             int `yaml:"burst"`
}

type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

type ChannelsConfig struct {
	Buffer          int           `yaml:"buffer"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

type CaptureConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Directory     string        `yaml:"directory"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

type IngestConfig struct {
	Binance BinanceIngestConfig `yaml:"binance"`
}

type BinanceIngestConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ProviderID uint16   `yaml:"provider_id"`
	Symbols    []string `yaml:"symbols"`
	Target     string   `yaml:"target"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads the YAML configuration at path, expands ${ENV}
// references and applies defaults for everything left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mitchwire.Name == "" {
		c.Mitchwire.Name = "mitchwire"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8710"
	}
	if c.Server.MaxMessageBytes <= 0 {
		c.Server.MaxMessageBytes = mitch.MaxMessageSize
	}
	if c.Server.WebSocket.Path == "" {
		c.Server.WebSocket.Path = "/feed"
	}
	if c.Channels.Buffer <= 0 {
		c.Channels.Buffer = 1024
	}
	if c.Channels.MetricsInterval <= 0 {
		c.Channels.MetricsInterval = 30 * time.Second
	}
	if c.Capture.Directory == "" {
		c.Capture.Directory = "data"
	}
	if c.Capture.FlushInterval <= 0 {
		c.Capture.FlushInterval = 30 * time.Second
	}
	if c.Capture.Compression == "" {
		c.Capture.Compression = "snappy"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

func (c *Config) validate() error {
	if c.Server.MaxMessageBytes < mitch.HeaderSize+mitch.FixedBodySize {
		return fmt.Errorf("server.max_message_bytes %d cannot hold a single-body message", c.Server.MaxMessageBytes)
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when S3 upload is enabled")
	}
	if c.Ingest.Binance.Enabled && len(c.Ingest.Binance.Symbols) == 0 {
		return fmt.Errorf("ingest.binance.symbols is required when binance ingest is enabled")
	}
	return nil
}
