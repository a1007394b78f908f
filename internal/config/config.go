package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "pocketchef.yaml"

type Config struct {
	APIBaseURL       string        `yaml:"api_base_url"`
	UploadPrefix     string        `yaml:"upload_prefix"`
	DatabasePath     string        `yaml:"database_path"`
	Host             string        `yaml:"host"`
	Port             string        `yaml:"port"`
	AllowRemote      bool          `yaml:"allow_remote"`
	Environment      string        `yaml:"environment"`
	LogLevel         string        `yaml:"log_level"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	QuickPrepMinutes int           `yaml:"quick_prep_minutes"`
	AllowedOrigins   string        `yaml:"allowed_origins"`

	MailgunDomain      string `yaml:"mailgun_domain"`
	MailgunAPIKey      string `yaml:"mailgun_api_key"`
	MailgunSenderEmail string `yaml:"mailgun_sender_email"`
	MailgunSenderName  string `yaml:"mailgun_sender_name"`
}

func Defaults() *Config {
	return &Config{
		APIBaseURL:         "http://127.0.0.1:5000",
		UploadPrefix:       "/uploads/",
		DatabasePath:       "pocketchef.db",
		Host:               "127.0.0.1",
		Port:               "8080",
		Environment:        "production",
		LogLevel:           "INFO",
		RequestTimeout:     15 * time.Second,
		QuickPrepMinutes:   30,
		AllowedOrigins:     "http://localhost:8080",
		MailgunSenderEmail: "noreply@pocketchef.local",
		MailgunSenderName:  "Pocket Chef",
	}
}

// Load reads the file named by POCKETCHEF_CONFIG, or pocketchef.yaml.
func Load() (*Config, error) {
	return LoadFrom(getEnv("POCKETCHEF_CONFIG", defaultConfigFile))
}

// LoadFrom layers defaults, the optional YAML file at path and the
// environment, in that order. A missing file is fine; a broken one is an
// error.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", cfg.APIBaseURL), "/")
	cfg.UploadPrefix = getEnv("UPLOAD_PREFIX", cfg.UploadPrefix)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowRemote = getEnvBool("ALLOW_REMOTE", cfg.AllowRemote)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.QuickPrepMinutes = getEnvInt("QUICK_PREP_MINUTES", cfg.QuickPrepMinutes)
	cfg.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.MailgunDomain = getEnv("MAILGUN_DOMAIN", cfg.MailgunDomain)
	cfg.MailgunAPIKey = getEnv("MAILGUN_API_KEY", cfg.MailgunAPIKey)
	cfg.MailgunSenderEmail = getEnv("MAILGUN_SENDER_EMAIL", cfg.MailgunSenderEmail)
	cfg.MailgunSenderName = getEnv("MAILGUN_SENDER_NAME", cfg.MailgunSenderName)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// ListenAddr is where the web front listens. The session and favorites
// belong to one person, so the default host is loopback.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) MailEnabled() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
