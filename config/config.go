// Package config loads the BidGrid server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/poiesic/bidgrid/ai"
	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/mail"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	// PublicURL is the web client's base URL, used for links in RFP emails.
	PublicURL       string        `yaml:"public_url,omitempty"`
	BodyLimit       int64         `yaml:"body_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates the database.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory,omitempty"`
}

// AuthConfig configures tokens.
type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl"`
	SecureCookies      bool          `yaml:"secure_cookies,omitempty"`
}

// AIConfig selects and tunes the LLM.
type AIConfig struct {
	Provider        string        `yaml:"provider"`
	Host            string        `yaml:"host,omitempty"`
	APIKey          string        `yaml:"api_key,omitempty"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// MailConfig configures outbound email.
type MailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key,omitempty"`
	FromAddress  string `yaml:"from_address"`
	Concurrency  int    `yaml:"concurrency"`
}

// IMAPConfig configures the inbox vendor replies arrive in.
type IMAPConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user,omitempty"`
	Password           string        `yaml:"password,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty"`
	Timeout            time.Duration `yaml:"timeout"`
}

// IngestionConfig configures reply processing.
type IngestionConfig struct {
	PoolSize int `yaml:"pool_size"`
	// PollSchedule is a cron spec such as "*/10 * * * *". Empty disables polling.
	PollSchedule string `yaml:"poll_schedule,omitempty"`
}

// CacheConfig configures the recommendation cache.
type CacheConfig struct {
	// RedisURL is a redis:// URL. Empty disables caching.
	RedisURL string        `yaml:"redis_url,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
}

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Mail      MailConfig      `yaml:"mail"`
	IMAP      IMAPConfig      `yaml:"imap"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Cache     CacheConfig     `yaml:"cache"`
}

// Default returns the configuration used for anything a file leaves unset.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			CORSOrigin:      "http://localhost:5173",
			BodyLimit:       16 << 10,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{Path: "./data"},
		Auth: AuthConfig{
			AccessTokenTTL:  auth.DefaultAccessTTL,
			RefreshTokenTTL: auth.DefaultRefreshTTL,
		},
		AI: AIConfig{
			Provider:        aiDefaults.Provider,
			Model:           aiDefaults.Model,
			Temperature:     aiDefaults.Temperature,
			MaxOutputTokens: aiDefaults.MaxOutputTokens,
			MaxRetries:      aiDefaults.MaxRetries,
			RetryDelay:      aiDefaults.RetryDelay,
		},
		Mail: MailConfig{
			FromAddress: mail.DefaultFromAddress,
			Concurrency: 5,
		},
		IMAP: IMAPConfig{
			Host:    mail.DefaultIMAPHost,
			Port:    mail.DefaultIMAPPort,
			Timeout: 30 * time.Second,
		},
		Ingestion: IngestionConfig{PoolSize: 4},
		Cache:     CacheConfig{TTL: time.Hour},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The result is not validated; callers apply overrides first.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return config, nil
}

// Validate normalizes the configuration and checks what serving requires.
func (c *Config) Validate() error {
	c.Server.PublicURL = strings.TrimSuffix(strings.TrimSpace(c.Server.PublicURL), "/")
	c.IMAP.User = strings.TrimSpace(c.IMAP.User)

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.BodyLimit <= 0 {
		return errors.New("server.body_limit must be positive")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	authCfg := c.AuthConfig()
	if err := authCfg.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if c.Mail.Concurrency < 1 {
		return errors.New("mail.concurrency must be positive")
	}
	if c.IMAP.Port < 1 || c.IMAP.Port > 65535 {
		return fmt.Errorf("imap.port must be between 1 and 65535, got %d", c.IMAP.Port)
	}
	if c.Ingestion.PoolSize < 1 {
		return errors.New("ingestion.pool_size must be positive")
	}
	return nil
}

// AIConfig converts the ai section.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.AI.Provider),
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithModel(c.AI.Model),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxOutputTokens(c.AI.MaxOutputTokens),
		ai.WithRetry(c.AI.MaxRetries, c.AI.RetryDelay),
	)
}

// AuthConfig converts the auth section, normalized.
func (c *Config) AuthConfig() auth.Config {
	cfg := auth.Config{
		AccessSecret:  c.Auth.AccessTokenSecret,
		RefreshSecret: c.Auth.RefreshTokenSecret,
		AccessTTL:     c.Auth.AccessTokenTTL,
		RefreshTTL:    c.Auth.RefreshTokenTTL,
		SecureCookies: c.Auth.SecureCookies,
	}
	cfg.Normalize()
	return cfg
}

// IMAPConfig converts the imap section.
func (c *Config) IMAPConfig() mail.IMAPConfig {
	return mail.IMAPConfig{
		Host:               c.IMAP.Host,
		Port:               c.IMAP.Port,
		Username:           c.IMAP.User,
		Password:           c.IMAP.Password,
		InsecureSkipVerify: c.IMAP.InsecureSkipVerify,
		Timeout:            c.IMAP.Timeout,
	}
}

// MailerConfig converts the mail section. Replies are directed to the IMAP
// inbox when one is configured.
func (c *Config) MailerConfig() mail.MailerConfig {
	return mail.MailerConfig{
		FromAddress: c.Mail.FromAddress,
		ReplyTo:     c.IMAP.User,
		PublicURL:   c.Server.PublicURL,
		Concurrency: c.Mail.Concurrency,
	}
}
