package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Environment string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	Storage     string `toml:"storage_driver"`

	Database  DatabaseConfig  `toml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Ops       OpsConfig       `toml:"ops"`
	Telegram  TelegramConfig  `toml:"telegram"`
}

type DatabaseConfig struct {
	DSN              string        `toml:"dsn"`
	MaxConns         int32         `toml:"max_conns"`
	MinConns         int32         `toml:"min_conns"`
	StatementTimeout time.Duration `toml:"statement_timeout"`
	TxMaxRetries     uint64        `toml:"tx_max_retries"`
}

type SchedulerConfig struct {
	SweepInterval  time.Duration `toml:"sweep_interval"`
	ExpiringWindow time.Duration `toml:"expiring_window"`
}

type LedgerConfig struct {
	CreditValidityDays int `toml:"credit_validity_days"`
	RefundCutoffHours  int `toml:"refund_cutoff_hours"`
}

type OpsConfig struct {
	Addr            string        `toml:"addr"`
	MetricsPath     string        `toml:"metrics_path"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type TelegramConfig struct {
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"` // префикс для ссылок в уведомлениях
}

// Default значения, с которых начинается загрузка
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Storage:     DriverPostgres,
		Database: DatabaseConfig{
			MaxConns:         10,
			MinConns:         1,
			StatementTimeout: 5 * time.Second,
			TxMaxRetries:     3,
		},
		Scheduler: SchedulerConfig{
			SweepInterval:  time.Hour,
			ExpiringWindow: 72 * time.Hour,
		},
		Ledger: LedgerConfig{
			CreditValidityDays: 30,
			RefundCutoffHours:  24,
		},
		Ops: OpsConfig{
			Addr:            ":9090",
			MetricsPath:     "/metrics",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load читает конфигурацию: значения по умолчанию, затем TOML-файл по пути path
// (если он есть), затем .env и переменные окружения.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load(".env")

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Storage, "STORAGE_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&c.Ops.Addr, "OPS_ADDR")

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SWEEP_INTERVAL: %w", err)
		}
		c.Scheduler.SweepInterval = d
	}
	if v := os.Getenv("TX_MAX_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TX_MAX_RETRIES: %w", err)
		}
		c.Database.TxMaxRetries = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate проверяет обязательные поля и допустимые диапазоны
func (c *Config) Validate() error {
	switch c.Storage {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s storage driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}

	if c.Scheduler.SweepInterval <= 0 {
		return fmt.Errorf("scheduler.sweep_interval must be positive")
	}
	if c.Scheduler.ExpiringWindow <= 0 {
		return fmt.Errorf("scheduler.expiring_window must be positive")
	}
	if c.Ledger.CreditValidityDays <= 0 {
		return fmt.Errorf("ledger.credit_validity_days must be positive")
	}
	if c.Ledger.RefundCutoffHours < 0 {
		return fmt.Errorf("ledger.refund_cutoff_hours must not be negative")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must not exceed max_conns")
	}
	return nil
}

// RefundCutoff окно отмены с возвратом кредита
func (c *Config) RefundCutoff() time.Duration {
	return time.Duration(c.Ledger.RefundCutoffHours) * time.Hour
}
