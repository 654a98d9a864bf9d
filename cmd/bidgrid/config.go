package main

import (
	"strings"

	"github.com/poiesic/bidgrid/config"
	"github.com/urfave/cli/v2"
)

// overrideFlags replace individual config file values. Each also reads the
// environment variable a container deployment would set.
func overrideFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Usage: "HTTP listen port", EnvVars: []string{"PORT"}},
		&cli.StringFlag{Name: "cors-origin", Usage: "Origin allowed to call the API", EnvVars: []string{"CORS_ORIGIN"}},
		&cli.StringFlag{Name: "public-url", Usage: "Base URL of the web client, used in RFP emails", EnvVars: []string{"PUBLIC_URL", "FRONTEND_URL"}},
		&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "Path to BadgerDB database directory", EnvVars: []string{"BIDGRID_DB"}},
		&cli.StringFlag{Name: "ai-provider", Usage: "AI provider (gemini, openai)", EnvVars: []string{"AI_PROVIDER"}},
		&cli.StringFlag{Name: "ai-key", Usage: "AI provider API key", EnvVars: []string{"AI_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"}},
		&cli.StringFlag{Name: "ai-host", Usage: "OpenAI-compatible service host URL", EnvVars: []string{"AI_HOST"}},
		&cli.StringFlag{Name: "ai-model", Usage: "Model name", EnvVars: []string{"AI_MODEL"}},
		&cli.StringFlag{Name: "resend-key", Usage: "Resend API key for outbound email", EnvVars: []string{"RESEND_API_KEY"}},
		&cli.StringFlag{Name: "email-from", Usage: "Sender address for RFP emails", EnvVars: []string{"EMAIL_FROM"}},
		&cli.StringFlag{Name: "imap-host", Usage: "IMAP server host", EnvVars: []string{"IMAP_HOST"}},
		&cli.IntFlag{Name: "imap-port", Usage: "IMAP server port", EnvVars: []string{"IMAP_PORT"}},
		&cli.StringFlag{Name: "imap-user", Usage: "IMAP username, also the Reply-To address", EnvVars: []string{"IMAP_USER"}},
		&cli.StringFlag{Name: "imap-password", Usage: "IMAP password", EnvVars: []string{"IMAP_PASSWORD"}},
		&cli.StringFlag{Name: "access-token-secret", Usage: "Access token signing secret", EnvVars: []string{"ACCESS_TOKEN_SECRET"}},
		&cli.StringFlag{Name: "refresh-token-secret", Usage: "Refresh token signing secret", EnvVars: []string{"REFRESH_TOKEN_SECRET"}},
		&cli.BoolFlag{Name: "secure-cookies", Usage: "Mark token cookies Secure", EnvVars: []string{"SECURE_COOKIES"}},
		&cli.StringFlag{Name: "redis-url", Usage: "Redis URL or host:port for the recommendation cache", EnvVars: []string{"REDIS_URL", "REDIS_ADDR"}},
		&cli.StringFlag{Name: "poll-schedule", Usage: "Cron schedule for background reply ingestion", EnvVars: []string{"POLL_SCHEDULE"}},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyOverrides(c, cfg)
	return cfg, nil
}

func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("cors-origin") {
		cfg.Server.CORSOrigin = c.String("cors-origin")
	}
	if c.IsSet("public-url") {
		cfg.Server.PublicURL = c.String("public-url")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("ai-provider") {
		cfg.AI.Provider = c.String("ai-provider")
	}
	if c.IsSet("ai-key") {
		cfg.AI.APIKey = c.String("ai-key")
	}
	if c.IsSet("ai-host") {
		cfg.AI.Host = c.String("ai-host")
	}
	if c.IsSet("ai-model") {
		cfg.AI.Model = c.String("ai-model")
	}
	if c.IsSet("resend-key") {
		cfg.Mail.ResendAPIKey = c.String("resend-key")
	}
	if c.IsSet("email-from") {
		cfg.Mail.FromAddress = c.String("email-from")
	}
	if c.IsSet("imap-host") {
		cfg.IMAP.Host = c.String("imap-host")
	}
	if c.IsSet("imap-port") {
		cfg.IMAP.Port = c.Int("imap-port")
	}
	if c.IsSet("imap-user") {
		cfg.IMAP.User = c.String("imap-user")
	}
	if c.IsSet("imap-password") {
		cfg.IMAP.Password = c.String("imap-password")
	}
	if c.IsSet("access-token-secret") {
		cfg.Auth.AccessTokenSecret = c.String("access-token-secret")
	}
	if c.IsSet("refresh-token-secret") {
		cfg.Auth.RefreshTokenSecret = c.String("refresh-token-secret")
	}
	if c.IsSet("secure-cookies") {
		cfg.Auth.SecureCookies = c.Bool("secure-cookies")
	}
	if c.IsSet("redis-url") {
		cfg.Cache.RedisURL = redisURL(c.String("redis-url"))
	}
	if c.IsSet("poll-schedule") {
		cfg.Ingestion.PollSchedule = c.String("poll-schedule")
	}
}

// redisURL accepts a bare host:port as well as a full URL.
func redisURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return "redis://" + s
}
