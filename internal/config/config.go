package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Oxylabs  OxylabsConfig
	ChatGPT  ChatGPTConfig
	Storage  StorageConfig
	Email    EmailConfig
	Cron     CronConfig
	Monitor  MonitorConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"geowatch"`
	Version  string `envconfig:"APP_VERSION" default:"1.0.0"`
	BaseURL  string `envconfig:"APP_BASE_URL" default:"https://geowatch.ai"`
	LogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"600s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPM    int           `envconfig:"SERVER_RATE_LIMIT_RPM" default:"120"`
	EnableCORS      bool          `envconfig:"SERVER_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"geowatch"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"geowatch"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OxylabsConfig holds the scraping API settings
type OxylabsConfig struct {
	Username     string        `envconfig:"OXYLABS_USERNAME" default:""`
	Password     string        `envconfig:"OXYLABS_PASSWORD" default:""`
	BaseURL      string        `envconfig:"OXYLABS_BASE_URL" default:"https://realtime.oxylabs.io/v1/queries"`
	Timeout      time.Duration `envconfig:"OXYLABS_TIMEOUT" default:"120s"`
	RateLimitRPM int           `envconfig:"OXYLABS_RATE_LIMIT_RPM" default:"30"`
}

// Configured returns true when credentials are present
func (c OxylabsConfig) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Password) != ""
}

// ChatGPTConfig holds interactive browser provider settings
type ChatGPTConfig struct {
	// CDP ports to probe for an already-running authenticated Chrome
	DebugPorts      []int         `envconfig:"CHATGPT_DEBUG_PORTS" default:"9222,9223,9224"`
	BaseURL         string        `envconfig:"CHATGPT_BASE_URL" default:"https://chatgpt.com"`
	NavigateTimeout time.Duration `envconfig:"CHATGPT_NAVIGATE_TIMEOUT" default:"60s"`
	AnswerTimeout   time.Duration `envconfig:"CHATGPT_ANSWER_TIMEOUT" default:"180s"`
	PollInterval    time.Duration `envconfig:"CHATGPT_POLL_INTERVAL" default:"500ms"`
	StableSamples   int           `envconfig:"CHATGPT_STABLE_SAMPLES" default:"5"`
	SettleDelay     time.Duration `envconfig:"CHATGPT_SETTLE_DELAY" default:"2s"`
	PanelTimeout    time.Duration `envconfig:"CHATGPT_PANEL_TIMEOUT" default:"8s"`
	MaxResponseLen  int           `envconfig:"CHATGPT_MAX_RESPONSE_LEN" default:"10000"`
	Screenshots     bool          `envconfig:"CHATGPT_SCREENSHOTS" default:"false"`
}

// StorageConfig holds MinIO/S3 artifact storage settings
type StorageConfig struct {
	Enabled   bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"geowatch"`
	Region    string `envconfig:"STORAGE_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// EmailConfig holds the Resend email settings
type EmailConfig struct {
	APIKey  string `envconfig:"RESEND_API_KEY" default:""`
	From    string `envconfig:"EMAIL_FROM" default:"GeoWatch <alerts@notifications.geowatch.ai>"`
	BaseURL string `envconfig:"RESEND_BASE_URL" default:"https://api.resend.com"`
}

// CronConfig holds the scheduled-run settings
type CronConfig struct {
	Secret string `envconfig:"CRON_SECRET" default:""`
}

// MonitorConfig holds run-level settings
type MonitorConfig struct {
	// Max concurrent keyword queries against the HTTP provider; the
	// interactive provider always serializes through its session manager.
	HTTPConcurrency int `envconfig:"MONITOR_HTTP_CONCURRENCY" default:"1"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Env != EnvDevelopment {
		if c.Database.Password == "" {
			errs = append(errs, "DB_PASSWORD is required in non-development mode")
		}
		if c.Cron.Secret == "" {
			errs = append(errs, "CRON_SECRET is required in non-development mode")
		}
	}
	if c.ChatGPT.StableSamples < 1 {
		errs = append(errs, "CHATGPT_STABLE_SAMPLES must be at least 1")
	}
	if len(c.ChatGPT.DebugPorts) == 0 {
		errs = append(errs, "CHATGPT_DEBUG_PORTS must list at least one port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the effective log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
