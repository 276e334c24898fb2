package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete configuration for the validation engine service
type Config struct {
	Environment string          `mapstructure:"environment"`
	Debug       bool            `mapstructure:"debug"`
	Server      ServerConfig    `mapstructure:"server"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Validation  ValidationConfig `mapstructure:"validation"`
	Semantic    SemanticConfig  `mapstructure:"semantic"`
	Audit       AuditConfig     `mapstructure:"audit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RedisConfig contains Redis configuration for the cache and counter backends
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig contains Postgres configuration for the advisor usage store
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ConnectionString builds the lib/pq DSN.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.Username, c.Password, c.SSLMode)
}

// KafkaConfig contains Kafka configuration for verdict event publishing
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	ClientID     string   `mapstructure:"client_id"`
	VerdictTopic string   `mapstructure:"verdict_topic"`
}

// ValidationConfig contains the policy constants of the validation pipeline.
// Severity points, blend weights and risk bands are policy, not code.
type ValidationConfig struct {
	DailyLimit      int           `mapstructure:"daily_limit"`
	CacheBackend    string        `mapstructure:"cache_backend"`   // memory or redis
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	LimiterBackend  string        `mapstructure:"limiter_backend"` // memory, redis or postgres
	Timezone        string        `mapstructure:"timezone"`        // local-day boundary for daily limits

	SeverityPoints map[string]int `mapstructure:"severity_points"`
	StrictWeight   float64        `mapstructure:"strict_weight"`
	RealtimeWeight float64        `mapstructure:"realtime_weight"`

	// Risk bands are upper bounds: score < band_low is low, < band_medium is
	// medium, < band_high is high, anything else critical.
	BandLow    int `mapstructure:"band_low"`
	BandMedium int `mapstructure:"band_medium"`
	BandHigh   int `mapstructure:"band_high"`

	WindowSize   int           `mapstructure:"window_size"`
	SLAThreshold time.Duration `mapstructure:"sla_threshold"`
}

// SemanticConfig contains configuration for the external LM reviewer
type SemanticConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second
	RateBurst   int           `mapstructure:"rate_burst"`
}

// AuditConfig contains audit trail configuration
type AuditConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// Load reads configuration from config.yaml and VALIDATION_ENGINE_* env vars
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/validation-engine")

	v.SetEnvPrefix("VALIDATION_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "validation_engine")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "validation-engine")
	v.SetDefault("kafka.verdict_topic", "compliance.verdicts")

	v.SetDefault("validation.daily_limit", 500)
	v.SetDefault("validation.cache_backend", "memory")
	v.SetDefault("validation.cache_ttl", "5m")
	v.SetDefault("validation.cache_max_entries", 10000)
	v.SetDefault("validation.limiter_backend", "memory")
	v.SetDefault("validation.timezone", "Asia/Kolkata")
	v.SetDefault("validation.severity_points", map[string]int{
		"low":      5,
		"medium":   15,
		"high":     30,
		"critical": 50,
	})
	v.SetDefault("validation.strict_weight", 0.8)
	v.SetDefault("validation.realtime_weight", 0.4)
	v.SetDefault("validation.band_low", 30)
	v.SetDefault("validation.band_medium", 60)
	v.SetDefault("validation.band_high", 85)
	v.SetDefault("validation.window_size", 100)
	v.SetDefault("validation.sla_threshold", "1500ms")

	v.SetDefault("semantic.enabled", true)
	v.SetDefault("semantic.model", "gpt-4o-mini")
	v.SetDefault("semantic.timeout", "1s")
	v.SetDefault("semantic.temperature", 0.1)
	v.SetDefault("semantic.rate_limit", 20)
	v.SetDefault("semantic.rate_burst", 40)

	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.batch_size", 50)
	v.SetDefault("audit.flush_interval", "5s")
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be in (0, 65535], got %d", c.Server.HTTPPort)
	}
	if c.Validation.DailyLimit <= 0 {
		return fmt.Errorf("validation.daily_limit must be positive, got %d", c.Validation.DailyLimit)
	}
	switch c.Validation.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("validation.cache_backend must be memory or redis, got %q", c.Validation.CacheBackend)
	}
	switch c.Validation.LimiterBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("validation.limiter_backend must be memory, redis or postgres, got %q", c.Validation.LimiterBackend)
	}
	if !(c.Validation.BandLow < c.Validation.BandMedium && c.Validation.BandMedium < c.Validation.BandHigh) {
		return fmt.Errorf("validation risk bands must be strictly increasing: %d, %d, %d",
			c.Validation.BandLow, c.Validation.BandMedium, c.Validation.BandHigh)
	}
	for _, sev := range []string{"low", "medium", "high", "critical"} {
		if _, ok := c.Validation.SeverityPoints[sev]; !ok {
			return fmt.Errorf("validation.severity_points missing entry for %q", sev)
		}
	}
	if c.Validation.WindowSize <= 0 {
		return fmt.Errorf("validation.window_size must be positive, got %d", c.Validation.WindowSize)
	}
	if c.Semantic.Timeout <= 0 {
		return fmt.Errorf("semantic.timeout must be positive, got %s", c.Semantic.Timeout)
	}
	if _, err := time.LoadLocation(c.Validation.Timezone); err != nil {
		return fmt.Errorf("validation.timezone is not a valid location: %w", err)
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it parses.
func (c *ValidationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
