package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	ServiceAuth ServiceAuthConfig `mapstructure:"service_auth"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// ServiceAuthConfig holds the shared HMAC credential for the
// orchestrator-facing transaction API. No per-user auth happens at
// transaction time.
type ServiceAuthConfig struct {
	AccessKey string `mapstructure:"access_key"`
	Secret    string `mapstructure:"secret"`
}

// LedgerConfig holds the wallet business rules.
// All amounts are integer minor currency units (paise).
type LedgerConfig struct {
	Currency             string        `mapstructure:"currency"`
	MaxTransactionAmount int64         `mapstructure:"max_transaction_amount"` // per-transaction cap
	DailyLimit           int64         `mapstructure:"daily_limit"`            // 0 = disabled
	HoldTTL              time.Duration `mapstructure:"hold_ttl"`               // default hold lifetime
	ReaperInterval       time.Duration `mapstructure:"reaper_interval"`
	LockTimeout          time.Duration `mapstructure:"lock_timeout"` // per-wallet lock bounded wait
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

var defaults = map[string]any{
	"server.host": "0.0.0.0",
	"server.port": 8080,
	"server.mode": "debug",

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.dbname":            "trust_ledger",
	"database.sslmode":           "disable",
	"database.max_conns":         20,
	"database.min_conns":         5,
	"database.conn_max_lifetime": "30m",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret": "",
	"jwt.expiry": "24h",
	"jwt.issuer": "trust-ledger",

	"service_auth.access_key": "",
	"service_auth.secret":     "",

	"ledger.currency":               "INR",
	"ledger.max_transaction_amount": 200000, // ₹2000 in paise
	"ledger.daily_limit":            500000, // ₹5000 in paise
	"ledger.hold_ttl":               "10m",
	"ledger.reaper_interval":        "30s",
	"ledger.lock_timeout":           "5s",

	"log.level":  "info",
	"log.pretty": false,
}

// Load reads configuration from an optional YAML file with TL_
// environment variables layered on top. Nested keys flatten with
// underscores: TL_DATABASE_HOST, TL_LEDGER_HOLD_TTL.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Ledger.MaxTransactionAmount <= 0 {
		return fmt.Errorf("ledger.max_transaction_amount must be positive")
	}
	if c.Ledger.HoldTTL <= 0 {
		return fmt.Errorf("ledger.hold_ttl must be positive")
	}
	return nil
}
