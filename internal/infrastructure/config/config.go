package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config is the full process configuration. Keys follow the TOML layout,
// e.g. database.max_open_conns.
type Config struct {
	App             AppConfig             `mapstructure:"app"`
	HTTP            HTTPConfig            `mapstructure:"http"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Log             LogConfig             `mapstructure:"log"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Telemetry       TelemetryConfig       `mapstructure:"telemetry"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Scheduler       SchedulerConfig       `mapstructure:"scheduler"`
	Accounting      AccountingConfig      `mapstructure:"accounting"`
	OrderManagement OrderManagementConfig `mapstructure:"order_management"`
	Shipping        ShippingConfig        `mapstructure:"shipping"`
	Sync            SyncConfig            `mapstructure:"sync"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"oneof=development testing staging production"`
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
	// WebhookTimeout bounds one webhook delivery; the caller gets an answer before it
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	// WebhookRateLimit caps deliveries per client IP per WebhookRateWindow; 0 disables it
	WebhookRateLimit  int           `mapstructure:"webhook_rate_limit" validate:"gte=0"`
	WebhookRateWindow time.Duration `mapstructure:"webhook_rate_window"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the sqlite file
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	// minutes
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time"`
}

// DSN returns the connection string for the configured driver. Postgres
// credentials are URL-escaped.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return dsn.String()
}

type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Required fails startup when Redis is unreachable instead of falling
	// back to per-process create claims
	Required bool   `mapstructure:"required"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// stdout, stderr or a file path
	Output string `mapstructure:"output"`
}

// JWTConfig holds settings for the admin API bearer tokens
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// StorageConfig holds the payload archive settings
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	Region  string `mapstructure:"region"`
	// Endpoint points at S3-compatible stores such as MinIO
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	Prefix          string `mapstructure:"prefix"`
}

// SchedulerConfig holds the cron trigger configuration
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	SyncInterval time.Duration `mapstructure:"sync_interval" validate:"gt=0"`
	RunTimeout   time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
}

type AccountingConfig struct {
	BaseURL      string `mapstructure:"base_url" validate:"omitempty,url"`
	TokenURL     string `mapstructure:"token_url" validate:"omitempty,url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// AppURL is the web UI base used to link audit records to payments
	AppURL     string        `mapstructure:"app_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count" validate:"gte=0,lte=10"`
}

type OrderManagementConfig struct {
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey   string `mapstructure:"api_key"`
	PageSize int    `mapstructure:"page_size" validate:"gte=0,lte=250"`
	// AppURL is the web UI base used to link audit records to orders and invoices
	AppURL     string        `mapstructure:"app_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count" validate:"gte=0,lte=10"`
}

type ShippingConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	PublicKey  string        `mapstructure:"public_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count" validate:"gte=0,lte=10"`
}

// SyncConfig holds engine-wide synchronization settings
type SyncConfig struct {
	// ClaimTTL bounds how long a create claim can block other triggers
	ClaimTTL time.Duration `mapstructure:"claim_ttl" validate:"gt=0"`
	// ArchivePayloads stores full payloads when storage is enabled
	ArchivePayloads bool `mapstructure:"archive_payloads"`
	// Settings are the remaining "sync.*" keys. They seed the settings
	// store; values saved through the API take precedence.
	Settings map[string]string `mapstructure:"-"`
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
