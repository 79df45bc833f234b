package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host              string        `yaml:"host" default:"0.0.0.0"`
		Port              int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout       time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout      time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CheckRateCapacity float64       `yaml:"check_rate_capacity" default:"3"`
		CheckRateRefill   float64       `yaml:"check_rate_refill" default:"0.1"`
		CORSOrigins       []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"trendtracker.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Database struct {
		Driver          string        `yaml:"driver" default:"postgres" validate:"oneof=postgres sqlite3"`
		DSN             string        `yaml:"dsn" validate:"required"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	} `yaml:"database"`
	Finnhub struct {
		APIKey   string        `yaml:"api_key" validate:"required"`
		BaseURL  string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"url"`
		Exchange string        `yaml:"exchange" default:"US"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"finnhub"`
	Market struct {
		StatusCacheTTL time.Duration `yaml:"status_cache_ttl"`
	} `yaml:"market"`
	Refresh struct {
		Enabled             bool          `yaml:"enabled" default:"true"`
		Interval            time.Duration `yaml:"interval" default:"10m"`
		Cron                string        `yaml:"cron"`
		BatchSize           int           `yaml:"batch_size" default:"25" validate:"gt=0"`
		CallDelay           time.Duration `yaml:"call_delay" default:"1500ms"`
		BatchDelay          time.Duration `yaml:"batch_delay" default:"60s"`
		RateLimitCooldown   time.Duration `yaml:"rate_limit_cooldown" default:"60s"`
		MaxRateLimitRetries int           `yaml:"max_rate_limit_retries" validate:"gte=0"`
	} `yaml:"refresh"`
	Alerts struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Interval      time.Duration `yaml:"interval" default:"5m"`
		QuoteCacheTTL time.Duration `yaml:"quote_cache_ttl"`
		EventsTopic   string        `yaml:"events_topic"`
	} `yaml:"alerts"`
	Email struct {
		Host     string `yaml:"host" default:"smtp.gmail.com"`
		Port     int    `yaml:"port" default:"587"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		From     string `yaml:"from" default:"\"TrendTracker\" <alerts@trendtracker.app>"`
	} `yaml:"email"`
	SMS struct {
		AccountSID string        `yaml:"account_sid"`
		AuthToken  string        `yaml:"auth_token"`
		From       string        `yaml:"from"`
		BaseURL    string        `yaml:"base_url" default:"https://api.twilio.com/2010-04-01"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"sms"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"trendtracker"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	History struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse"`
		Topic   string `yaml:"topic" default:"trendtracker.quotes"`
		Table   string `yaml:"table" default:"quote_history"`
	} `yaml:"history"`
	Kafka struct {
		Brokers          []string      `yaml:"brokers"`
		RequiredAcks     int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression      string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts      int           `yaml:"max_attempts" default:"3" validate:"min=1"`
		BatchSize        int           `yaml:"batch_size" default:"100" validate:"min=1"`
		BatchBytes       int64         `yaml:"batch_bytes" default:"1048576" validate:"min=1"`
		Linger           time.Duration `yaml:"linger" default:"1s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		Async            bool          `yaml:"async"`
		AutoCreateTopics bool          `yaml:"auto_create_topics"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"trendtracker"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"4" validate:"min=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"2" validate:"min=0,ltefield=MaxOpenConns"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Parse decodes YAML on top of struct defaults. Keys present in the document
// win, including explicit false and zero values.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and then
// validates, so secrets may live only in the environment.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Environment, "APP_ENV")
	set(&c.Finnhub.APIKey, "FINNHUB_API_KEY")
	set(&c.Database.DSN, "DATABASE_DSN")
	set(&c.Email.User, "EMAIL_USER")
	set(&c.Email.Password, "EMAIL_PASS")
	set(&c.Email.User, "SMTP_USER")
	set(&c.Email.Password, "SMTP_PASS")
	set(&c.SMS.AccountSID, "TWILIO_ACCOUNT_SID")
	set(&c.SMS.AuthToken, "TWILIO_AUTH_TOKEN")
	set(&c.SMS.From, "TWILIO_PHONE_NUMBER")
	set(&c.Cache.Redis.Addr, "REDIS_ADDR")
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Refresh.Enabled && c.Refresh.Cron == "" && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive when refresh.cron is empty")
	}
	if c.Alerts.Enabled && c.Alerts.Interval <= 0 {
		return fmt.Errorf("alerts.interval must be positive")
	}
	if c.Refresh.CallDelay < 0 || c.Refresh.BatchDelay < 0 || c.Refresh.RateLimitCooldown < 0 {
		return fmt.Errorf("refresh delays cannot be negative")
	}
	if c.History.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("history.backend=kafka requires kafka.brokers")
	}
	if c.History.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("history.backend=clickhouse requires clickhouse.host")
	}
	if c.Alerts.EventsTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("alerts.events_topic requires kafka.brokers")
	}
	if c.Logging.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("logging.collector requires kafka.brokers")
	}
	return nil
}

// KafkaEnabled reports whether any component needs a producer.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 &&
		(c.History.Backend == "kafka" || c.Alerts.EventsTopic != "" || c.Logging.Collector.Enabled)
}

// EmailConfigured is true when SMTP credentials are present.
func (c *Config) EmailConfigured() bool {
	return c.Email.User != "" && c.Email.Password != ""
}

// SMSConfigured is true when Twilio credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.SMS.AccountSID != "" && c.SMS.AuthToken != "" && c.SMS.From != ""
}
