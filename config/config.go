package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Hours      HoursConfig      `yaml:"hours"`
	Cache      CacheConfig      `yaml:"cache"`
	Database   DatabaseConfig   `yaml:"database"`
	Calls      CallsConfig      `yaml:"calls"`
	AWS        AWSConfig        `yaml:"aws"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Responses overrides or adds canned inquiry answers, keyed by inquiry type.
	Responses map[string]string `yaml:"responses"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                   int     `yaml:"port" validate:"min=1,max=65535"`
	RateLimitPerSec        float64 `yaml:"rate_limit_per_sec" validate:"gte=0"`
	RateLimitBurst         int     `yaml:"rate_limit_burst" validate:"gte=0"`
	CacheTTLSeconds        int     `yaml:"cache_ttl_seconds"`
	ShutdownTimeoutSeconds int     `yaml:"shutdown_timeout_seconds"`
}

// HoursConfig describes the operating window and the static holiday list.
// Weekdays use Monday=0..Sunday=6.
type HoursConfig struct {
	Timezone  string   `yaml:"timezone" validate:"required"`
	ZoneLabel string   `yaml:"zone_label"`
	OpenHour  int      `yaml:"open_hour" validate:"min=0,max=23"`
	CloseHour int      `yaml:"close_hour" validate:"min=0,max=23,gtfield=OpenHour"`
	Weekdays  []int    `yaml:"weekdays" validate:"required,min=1,dive,min=0,max=6"`
	Holidays  []string `yaml:"holidays" validate:"dive,datetime=2006-01-02"`
}

// CacheConfig tunes the decision cache.
type CacheConfig struct {
	Disabled   bool `yaml:"disabled"`
	Capacity   int  `yaml:"capacity"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level" validate:"oneof=silent error warn info"`
}

// CallsConfig selects the call-record backend.
type CallsConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=gorm dynamodb"`
	Table         string `yaml:"table"`
	RetentionDays int    `yaml:"retention_days"`
}

// AWSConfig is shared by the DynamoDB call store and the CloudWatch sink.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig selects where metric data points go.
type MetricsConfig struct {
	Sink      string `yaml:"sink" validate:"oneof=log cloudwatch"`
	Namespace string `yaml:"namespace"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// RefreshConfig drives the background holiday sync and call retention purge.
type RefreshConfig struct {
	Enabled         bool              `yaml:"enabled"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"`
	FeedURL         string            `yaml:"feed_url" validate:"omitempty,url"`
	HTTPProxy       string            `yaml:"http_proxy"`
	Headers         map[string]string `yaml:"headers"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// TelemetryConfig configures the optional OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

var validate = validator.New()

// Load reads the configuration from the given path, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural constraints of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Hours.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: hours.timezone: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("CALL_LOGS_TABLE"); v != "" {
		cfg.Calls.Table = v
	}
	if v := os.Getenv("HOLIDAY_FEED_URL"); v != "" {
		cfg.Refresh.FeedURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Warn().Str("PORT", v).Msg("ignoring non-numeric PORT override")
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec == 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Hours.Timezone == "" {
		cfg.Hours.Timezone = "Asia/Seoul"
	}
	if cfg.Hours.ZoneLabel == "" {
		cfg.Hours.ZoneLabel = cfg.Hours.Timezone
	}
	if cfg.Hours.OpenHour == 0 && cfg.Hours.CloseHour == 0 {
		cfg.Hours.OpenHour, cfg.Hours.CloseHour = 9, 18
	}
	if len(cfg.Hours.Weekdays) == 0 {
		cfg.Hours.Weekdays = []int{0, 1, 2, 3, 4}
	}

	if cfg.Cache.Capacity <= 0 {
		cfg.Cache.Capacity = 100
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Calls.Backend == "" {
		cfg.Calls.Backend = "gorm"
	}
	if cfg.Calls.Table == "" {
		cfg.Calls.Table = "call-logs"
	}
	if cfg.Calls.RetentionDays <= 0 {
		cfg.Calls.RetentionDays = 90
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "ap-northeast-2"
	}

	if cfg.Metrics.Sink == "" {
		cfg.Metrics.Sink = "log"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "AICC/IVR"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Warn().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 3600
	}
	cfg.Refresh.Interval = time.Duration(cfg.Refresh.IntervalSeconds) * time.Second

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "aicc-ivr-backend"
	}
}
