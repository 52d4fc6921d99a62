package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SYNC"

// defaults registers every known key, which also lets AutomaticEnv
// override keys absent from the config file.
var defaults = map[string]any{
	"app.name": "syncengine",
	"app.env":  "development",
	"app.port": "8080",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       60 * time.Second,
	"http.idle_timeout":        60 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(5 << 20),
	"http.webhook_timeout":     50 * time.Second,
	"http.trusted_proxies":     []string{},
	"http.cors_origins":        []string{},
	"http.webhook_rate_limit":  0,
	"http.webhook_rate_window": time.Minute,

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "syncengine",
	"database.sslmode":            "disable",
	"database.path":               "syncengine.db",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.required": false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"jwt.secret":     "",
	"jwt.issuer":     "syncengine",
	"jwt.expiration": time.Hour,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "syncengine",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"storage.enabled":           false,
	"storage.bucket":            "",
	"storage.region":            "us-east-1",
	"storage.endpoint":          "",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.prefix":            "payloads",

	"scheduler.enabled":       false,
	"scheduler.sync_interval": 10 * time.Minute,
	"scheduler.run_timeout":   30 * time.Minute,

	"accounting.base_url":      "",
	"accounting.token_url":     "",
	"accounting.client_id":     "",
	"accounting.client_secret": "",
	"accounting.app_url":       "",
	"accounting.timeout":       30 * time.Second,
	"accounting.retry_count":   0,

	"order_management.base_url":    "",
	"order_management.api_key":     "",
	"order_management.page_size":   0,
	"order_management.app_url":     "",
	"order_management.timeout":     30 * time.Second,
	"order_management.retry_count": 0,

	"shipping.base_url":    "",
	"shipping.public_key":  "",
	"shipping.secret_key":  "",
	"shipping.timeout":     30 * time.Second,
	"shipping.retry_count": 0,

	"sync.claim_ttl":        2 * time.Minute,
	"sync.archive_payloads": false,
}

// settingKeys are engine settings that may come from the environment alone,
// e.g. SYNC_SYNC_WEBHOOK_SECRET
var settingKeys = []string{
	"sync.webhook_secret",
	"sync.debtor_ledger_code",
	"sync.shipping_method_id",
	"sync.organisation_id",
}

// Load reads configuration. Later sources win:
//
//	built-in defaults < config.toml < .env < SYNC_* environment variables
func Load() (*Config, error) {
	// .env never overrides variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/syncengine")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range settingKeys {
		_ = v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Sync.Settings = engineSettings(v)
	return &cfg, nil
}

// engineSettings collects the [sync] keys that are not process settings.
func engineSettings(v *viper.Viper) map[string]string {
	settings := make(map[string]string)
	for _, key := range v.AllKeys() {
		if !strings.HasPrefix(key, "sync.") {
			continue
		}
		if _, process := defaults[key]; process {
			continue
		}
		if value := v.GetString(key); value != "" {
			settings[key] = value
		}
	}
	return settings
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.IsProduction() {
		return nil
	}

	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be at least 32 characters in production")
	}
	if c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode must not be disable in production")
		}
	}
	if c.Telemetry.DBLogFullSQL {
		return errors.New("telemetry.db_log_full_sql exposes statement values and is not allowed in production")
	}
	return nil
}
