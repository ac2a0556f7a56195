package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Environment variables are read first,
// then an optional YAML file named by CONFIG_FILE overlays them.
type Config struct {
	AppEnv   string `yaml:"app_env"`
	HTTPAddr string `yaml:"http_addr"`

	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	CredentialsKey string `yaml:"credentials_key"`
	JWTSecret      string `yaml:"jwt_secret"`

	// CacheBackend is "memory" or "redis"
	CacheBackend string `yaml:"cache_backend"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	DB       string `yaml:"db"`
	Password string `yaml:"password"`
}

// DSN builds the postgres connection string used by both gorm and sqlx
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	// EventsStream is the stream that receives import.completed events. Empty disables publishing.
	EventsStream string `yaml:"events_stream"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// ArchiveConfig configures the raw feed archive. Disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timezone     string        `yaml:"timezone"`
	DefaultJobs  []DefaultJob  `yaml:"default_jobs"`
}

// DefaultJob is a process-level job that exists independently of persisted schedules
type DefaultJob struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	Frequency  string `yaml:"frequency"`
	Hour       int    `yaml:"hour"`
	Minute     int    `yaml:"minute"`
	DayOfWeek  int    `yaml:"day_of_week"`
	DayOfMonth int    `yaml:"day_of_month"`
	Cron       string `yaml:"cron"`
}

// RateLimitConfig is the per-client request budget of the API
type RateLimitConfig struct {
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	Whitelist         []string `yaml:"whitelist"`
}

type IngestionConfig struct {
	TempDir           string        `yaml:"temp_dir"`
	ProgressEvery     int           `yaml:"progress_every"`
	SampleMaxBytes    int64         `yaml:"sample_max_bytes"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	MaxReportedErrors int           `yaml:"max_reported_errors"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

// Load reads configuration from the environment and the optional CONFIG_FILE
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Postgres: PostgresConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			User:     getEnv("PG_USER", "postgres"),
			DB:       getEnv("PG_DB", "feedhub"),
			Password: os.Getenv("PG_PASSWORD"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			EventsStream: os.Getenv("IMPORT_EVENTS_STREAM"),
		},
		Archive: ArchiveConfig{
			Endpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
			Bucket:    os.Getenv("ARCHIVE_BUCKET"),
			Region:    os.Getenv("ARCHIVE_REGION"),
			UseSSL:    getEnvBool("ARCHIVE_USE_SSL", false),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getEnvBool("SCHEDULER_ENABLED", true),
			PollInterval: getEnvDuration("SCHEDULER_POLL_INTERVAL", 30*time.Second),
			Timezone:     getEnv("SCHEDULER_TIMEZONE", "UTC"),
		},
		Ingestion: IngestionConfig{
			TempDir:           getEnv("INGEST_TEMP_DIR", os.TempDir()),
			ProgressEvery:     getEnvInt("INGEST_PROGRESS_EVERY", 50),
			SampleMaxBytes:    int64(getEnvInt("SAMPLE_MAX_BYTES", 5*1024*1024)),
			ProbeTimeout:      getEnvDuration("PROBE_TIMEOUT", 10*time.Second),
			ConnectTimeout:    getEnvDuration("CONNECT_TIMEOUT", 30*time.Second),
			FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 5*time.Minute),
			MaxReportedErrors: getEnvInt("INGEST_MAX_REPORTED_ERRORS", 200),
			MaxUploadBytes:    int64(getEnvInt("UPLOAD_MAX_BYTES", 50*1024*1024)),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
			Whitelist:         splitList(os.Getenv("RATE_LIMIT_WHITELIST")),
		},
		CredentialsKey: os.Getenv("CREDENTIALS_KEY"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CacheBackend:   getEnv("CACHE_BACKEND", "memory"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	var missing []string
	if c.CredentialsKey == "" {
		missing = append(missing, "CREDENTIALS_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.Ingestion.ProgressEvery <= 0 {
		return fmt.Errorf("ingestion progress_every must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// Location returns the scheduler's time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
