// Package config loads and validates the exporter's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SchemaVersion              = 1
	DefaultPath                = "/etc/soliscloud/config.yaml"
	DefaultHTTPAddr            = "0.0.0.0:8080"
	DefaultLogLevel            = "info"
	DefaultPollIntervalSeconds = 300
	DefaultTimeoutSeconds      = 10
	DefaultRateLimit           = 2
	DefaultMQTTTopicPrefix     = "soliscloud"
	DefaultArchivePrefix       = "soliscloud/raw"
)

type Config struct {
	SchemaVersion int    `yaml:"schema_version"`
	HTTPAddr      string `yaml:"http_addr"`
	LogLevel      string `yaml:"log_level"`

	API     APIConfig      `yaml:"api"`
	Poll    PollConfig     `yaml:"poll"`
	MQTT    *MQTTConfig    `yaml:"mqtt"`
	Archive *ArchiveConfig `yaml:"archive"`
}

// APIConfig carries the vendor API credentials and transport knobs.
// Credentials are file paths so the config itself stays secret-free.
type APIConfig struct {
	KeyIDFile      string `yaml:"key_id_file"`
	SecretFile     string `yaml:"secret_file"`
	Domain         string `yaml:"domain"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RateLimit      int    `yaml:"rate_limit"`
}

type PollConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	StationIDs      []int64 `yaml:"station_ids"`
	NMICode         string  `yaml:"nmi_code"`
}

type MQTTConfig struct {
	BrokerURL    string `yaml:"broker_url"`
	UsernameFile string `yaml:"username_file"`
	PasswordFile string `yaml:"password_file"`
	TopicPrefix  string `yaml:"topic_prefix"`
}

type ArchiveConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

// Load parses the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = DefaultRateLimit
	}

	if cfg.Poll.IntervalSeconds == 0 {
		cfg.Poll.IntervalSeconds = DefaultPollIntervalSeconds
	}

	if cfg.MQTT != nil && cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
	if cfg.Archive != nil && cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = DefaultArchivePrefix
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema_version must be %d", SchemaVersion)
	}

	if cfg.API.KeyIDFile == "" {
		return fmt.Errorf("api.key_id_file is required")
	}
	if cfg.API.SecretFile == "" {
		return fmt.Errorf("api.secret_file is required")
	}
	if cfg.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must not be negative")
	}
	if cfg.API.RateLimit < 1 {
		return fmt.Errorf("api.rate_limit must be at least 1")
	}

	if cfg.Poll.IntervalSeconds < 1 {
		return fmt.Errorf("poll.interval_seconds must be at least 1")
	}

	if cfg.MQTT != nil && cfg.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required")
	}

	if cfg.Archive != nil {
		if cfg.Archive.Endpoint == "" {
			return fmt.Errorf("archive.endpoint is required")
		}
		if cfg.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required")
		}
		if cfg.Archive.AccessKeyFile == "" {
			return fmt.Errorf("archive.access_key_file is required")
		}
		if cfg.Archive.SecretKeyFile == "" {
			return fmt.Errorf("archive.secret_key_file is required")
		}
	}

	return nil
}

// Timeout returns the API request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Interval returns the poll interval as a duration.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Credentials reads the API key id and secret from their files.
func (c APIConfig) Credentials() (string, []byte, error) {
	keyID, err := ReadSecretFile(c.KeyIDFile)
	if err != nil {
		return "", nil, fmt.Errorf("read api key id: %w", err)
	}
	secret, err := ReadSecretFile(c.SecretFile)
	if err != nil {
		return "", nil, fmt.Errorf("read api secret: %w", err)
	}
	return keyID, []byte(secret), nil
}

// ReadSecretFile reads a single secret from a file, trimming any
// surrounding whitespace or trailing newline.
func ReadSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
