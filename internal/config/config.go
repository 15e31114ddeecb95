// Package config loads the process configuration: graph/signature store
// locations, SMTP/IMAP transport settings, the LLM extraction service,
// scheduler defaults, and the HTTP surface. Values load from a YAML file
// first and are then overridden field-by-field by the matching environment
// variable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`
}

type GraphDBConfig struct {
	URL string `yaml:"url"`
}

type SignatureDBConfig struct {
	URL string `yaml:"url"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
}

type IMAPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
	Mailbox  string `yaml:"mailbox"`
}

type EmailConfig struct {
	From             string        `yaml:"from"`
	ReplyTo          string        `yaml:"reply_to"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	PollIntervalSecs int           `yaml:"-"`
}

type LLMConfig struct {
	StudioURL string `yaml:"studio_url"`
	ModelName string `yaml:"model_name"`
	Enabled   bool   `yaml:"enabled"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RedisConfig backs the distributed sprint-activation lock. An empty URL
// falls back to an in-process lock, suitable for a single-instance
// deployment or local development.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SlackConfig routes operator alerts (email parse failures, poll
// connection errors) to a Slack channel. An empty Token falls back to
// discarding alerts rather than failing startup.
type SlackConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SchedulerConfig struct {
	SolveTimeout time.Duration `yaml:"solve_timeout"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	GraphDB     GraphDBConfig     `yaml:"graph_db"`
	SignatureDB SignatureDBConfig `yaml:"signature_db"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	IMAP        IMAPConfig        `yaml:"imap"`
	Email       EmailConfig       `yaml:"email"`
	LLM         LLMConfig         `yaml:"llm"`
	Auth        AuthConfig        `yaml:"auth"`
	Redis       RedisConfig       `yaml:"redis"`
	Slack       SlackConfig       `yaml:"slack"`
	Logging     LoggingConfig     `yaml:"logging"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// Default returns the baseline configuration used when no file or
// environment override is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{HTTPPort: "8080", MetricsPort: "9090"},
		GraphDB: GraphDBConfig{URL: "memory://"},
		SignatureDB: SignatureDBConfig{
			URL: "postgres://localhost:5432/almforge?sslmode=disable",
		},
		SMTP:      SMTPConfig{Port: 587, TLS: true},
		IMAP:      IMAPConfig{Port: 993, TLS: true, Mailbox: "INBOX"},
		Email:     EmailConfig{PollInterval: 60 * time.Second},
		LLM:       LLMConfig{ModelName: "claude-3-5-sonnet", Enabled: false},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Scheduler: SchedulerConfig{SolveTimeout: 60 * time.Second},
	}
}

// Load reads path (if non-empty and present) as YAML over the defaults,
// then applies environment variable overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	strVar(&c.SMTP.Host, "SMTP_HOST")
	intVar(&c.SMTP.Port, "SMTP_PORT")
	strVar(&c.SMTP.User, "SMTP_USER")
	strVar(&c.SMTP.Password, "SMTP_PASSWORD")
	boolVar(&c.SMTP.TLS, "SMTP_TLS")

	strVar(&c.IMAP.Host, "IMAP_HOST")
	intVar(&c.IMAP.Port, "IMAP_PORT")
	strVar(&c.IMAP.User, "IMAP_USER")
	strVar(&c.IMAP.Password, "IMAP_PASSWORD")
	boolVar(&c.IMAP.TLS, "IMAP_TLS")
	strVar(&c.IMAP.Mailbox, "IMAP_MAILBOX")

	strVar(&c.Email.From, "EMAIL_FROM")
	strVar(&c.Email.ReplyTo, "EMAIL_REPLY_TO")
	if v := os.Getenv("EMAIL_POLL_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Email.PollInterval = time.Duration(secs) * time.Second
		}
	}

	strVar(&c.LLM.StudioURL, "LLM_STUDIO_URL")
	strVar(&c.LLM.ModelName, "LLM_MODEL_NAME")
	boolVar(&c.LLM.Enabled, "LLM_ENABLED")

	strVar(&c.GraphDB.URL, "GRAPH_DB_URL")
	strVar(&c.SignatureDB.URL, "SIGNATURE_DB_URL")
	strVar(&c.Auth.JWTSecret, "JWT_SECRET")
	strVar(&c.Redis.URL, "REDIS_URL")
	strVar(&c.Slack.Token, "SLACK_BOT_TOKEN")
	strVar(&c.Slack.ChannelID, "SLACK_ALERT_CHANNEL")
}

func strVar(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func intVar(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolVar(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the invariants the rest of the core assumes hold: a
// non-empty signature/graph store location, and (when the LLM extraction
// step is enabled) a configured model + endpoint.
func (c *Config) Validate() error {
	if c.GraphDB.URL == "" {
		return fmt.Errorf("graph_db.url is required")
	}
	if c.SignatureDB.URL == "" {
		return fmt.Errorf("signature_db.url is required")
	}
	if c.Email.PollInterval <= 0 {
		return fmt.Errorf("email.poll_interval must be positive")
	}
	if c.LLM.Enabled && (c.LLM.StudioURL == "" || c.LLM.ModelName == "") {
		return fmt.Errorf("llm.studio_url and llm.model_name are required when llm.enabled is true")
	}
	if c.Scheduler.SolveTimeout <= 0 {
		return fmt.Errorf("scheduler.solve_timeout must be positive")
	}
	return nil
}

// Redacted returns a copy of c safe to log: secrets are replaced with a
// fixed placeholder rather than omitted, so the shape of the config is
// still visible in logs.
func (c Config) Redacted() Config {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "***REDACTED***"
	}
	c.SMTP.Password = redact(c.SMTP.Password)
	c.IMAP.Password = redact(c.IMAP.Password)
	c.Auth.JWTSecret = redact(c.Auth.JWTSecret)
	c.Slack.Token = redact(c.Slack.Token)
	return c
}
