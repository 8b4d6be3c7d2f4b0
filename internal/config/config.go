// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallbacks for the mailform server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen        = ":8080"
	defaultCookieName    = "mailform_draft"
	defaultDraftTTL      = 24 * time.Hour
	defaultSubmitDelay   = 2 * time.Second
	defaultImportMaxSize = 5 * 1024 * 1024
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	TLS      TLSConfig     `yaml:"tls"`
	Provider string        `yaml:"provider"`
	SES      SESConfig     `yaml:"ses"`
	Graph    GraphConfig   `yaml:"graph"`
	NATS     NATSConfig    `yaml:"nats"`
	Draft    DraftConfig   `yaml:"draft"`
	Import   ImportConfig  `yaml:"import"`
	Submit   SubmitConfig  `yaml:"submit"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP listener and access settings.
type ServerConfig struct {
	Listen     string `yaml:"listen"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	CookieName string `yaml:"cookie_name"`
}

// TLSConfig enables HTTPS. With no cert files a self-signed certificate
// is generated at startup.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// NATSConfig holds the JetStream outbox settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// DraftConfig selects where per-browser form state lives.
type DraftConfig struct {
	Store         string        `yaml:"store"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	TTL           time.Duration `yaml:"ttl"`
}

// ImportConfig limits spreadsheet uploads.
type ImportConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
}

// SubmitConfig controls the submission hand-off.
type SubmitConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first; variables already set
// in the process environment always win over it.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with .env and environment variables. Returns an error if
// the specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", "stdout", "nats":
	case "ses":
		if !c.SESConfigured() {
			return fmt.Errorf("provider ses requires ses.region and ses.sender")
		}
	case "graph":
		if !c.GraphConfigured() {
			return fmt.Errorf("provider graph requires tenant_id, client_id, client_secret and sender")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Draft.Store {
	case "memory":
	case "redis":
		if c.Draft.RedisAddr == "" {
			return fmt.Errorf("draft store redis requires draft.redis_addr")
		}
	default:
		return fmt.Errorf("unknown draft store %q", c.Draft.Store)
	}

	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file must be set together")
	}
	return nil
}

// SESConfigured returns true if the SES region and sender are set.
// Credentials may come from the default AWS chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// AuthEnabled returns true if both server username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.Server.Username != "" && c.Server.Password != ""
}

// loadDotEnv reads path into the process environment. A missing file is
// not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Server.Listen = defaultListen
	c.Server.CookieName = defaultCookieName
	c.Provider = "stdout"
	c.Draft.Store = "memory"
	c.Draft.TTL = defaultDraftTTL
	c.Import.MaxFileSize = defaultImportMaxSize
	c.Submit.Delay = defaultSubmitDelay
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	setString(&c.Server.Listen, "SERVER_LISTEN")
	setString(&c.Server.Username, "SERVER_USERNAME")
	setString(&c.Server.Password, "SERVER_PASSWORD")
	setString(&c.Server.CookieName, "SERVER_COOKIE_NAME")

	if v := os.Getenv("TLS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.TLS.Enabled = enabled
		}
	}
	setString(&c.TLS.CertFile, "TLS_CERT_FILE")
	setString(&c.TLS.KeyFile, "TLS_KEY_FILE")

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setString(&c.SES.Sender, "SES_SENDER")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")

	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.NATS.Stream, "NATS_STREAM")
	setString(&c.NATS.Subject, "NATS_SUBJECT")

	if v := os.Getenv("DRAFT_STORE"); v != "" {
		c.Draft.Store = strings.ToLower(v)
	}
	setString(&c.Draft.RedisAddr, "REDIS_ADDR")
	setString(&c.Draft.RedisPassword, "REDIS_PASSWORD")
	setDuration(&c.Draft.TTL, "DRAFT_TTL")

	if v := os.Getenv("IMPORT_MAX_FILE_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Import.MaxFileSize = size
		}
	}
	setDuration(&c.Submit.Delay, "SUBMIT_DELAY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
