// Package config загружает конфигурацию агента телеметрии.
// Значения применяются в порядке возрастания приоритета: значения по умолчанию,
// JSON-файл (-config или CONFIG), явно заданные флаги, переменные окружения.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры агента.
type Config struct {
	// Addr задает адрес сервера-приёмника телеметрии.
	Addr string `env:"ADDRESS" json:"address"`

	// Key содержит секрет для подписи тела запроса HMAC SHA256. Пустое значение отключает подпись.
	Key string `env:"KEY" json:"key"`

	// PollInterval задаёт интервал сбора метрик в секундах.
	PollInterval int `env:"POLL_INTERVAL" json:"poll_interval"`

	// ReportInterval задаёт интервал отправки накопленных событий в секундах.
	ReportInterval int `env:"REPORT_INTERVAL" json:"report_interval"`

	// CryptoKeyPath указывает путь к открытому ключу сервера. Пустое значение отключает шифрование.
	CryptoKeyPath string `env:"CRYPTO_KEY" json:"crypto_key"`

	// TelemetryEnabled включает отправку телеметрии. По умолчанию выключено.
	TelemetryEnabled bool `env:"TELEMETRY_ENABLED" json:"telemetry_enabled"`

	// MaxBatchSize ограничивает количество событий в одном запросе.
	MaxBatchSize int `env:"MAX_BATCH_SIZE" json:"max_batch_size"`

	// MaxQueueSize ограничивает количество событий, ожидающих отправки.
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" json:"max_queue_size"`

	LogLevel string `env:"LOG_LEVEL" json:"log_level"`

	ConfigPath string `env:"CONFIG" json:"-"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Addr:           "localhost:8080",
		PollInterval:   2,
		ReportInterval: 10,
		MaxBatchSize:   20,
		MaxQueueSize:   10000,
		LogLevel:       "info",
	}
}

// PollDuration возвращает интервал сбора метрик.
func (c Config) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// ReportDuration возвращает интервал отправки.
func (c Config) ReportDuration() time.Duration {
	return time.Duration(c.ReportInterval) * time.Second
}

// Validate проверяет, что числовые параметры положительны.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %d", c.PollInterval))
	}
	if c.ReportInterval <= 0 {
		errs = append(errs, fmt.Errorf("report interval must be positive, got %d", c.ReportInterval))
	}
	if c.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("max batch size must be positive, got %d", c.MaxBatchSize))
	}
	if c.MaxQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("max queue size must be positive, got %d", c.MaxQueueSize))
	}
	return errors.Join(errs...)
}

// Load разбирает args (без имени программы), JSON-файл и окружение.
func Load(args []string) (Config, error) {
	cfg := Default()
	flags := Default()

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.StringVar(&flags.Addr, "a", flags.Addr, "telemetry server address")
	fs.StringVar(&flags.Key, "k", flags.Key, "HMAC signing key")
	fs.StringVar(&flags.ConfigPath, "config", "", "path to JSON config file")
	fs.StringVar(&flags.CryptoKeyPath, "c", flags.CryptoKeyPath, "path to server public key")
	fs.IntVar(&flags.PollInterval, "p", flags.PollInterval, "poll interval in seconds")
	fs.IntVar(&flags.ReportInterval, "r", flags.ReportInterval, "report interval in seconds")
	fs.BoolVar(&flags.TelemetryEnabled, "t", flags.TelemetryEnabled, "enable telemetry")
	fs.IntVar(&flags.MaxBatchSize, "b", flags.MaxBatchSize, "max events per request")
	fs.IntVar(&flags.MaxQueueSize, "q", flags.MaxQueueSize, "max queued events")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	configPath := getConfigPath(flags.ConfigPath, os.Getenv("CONFIG"))
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return Config{}, err
		}
		cfg.ConfigPath = configPath
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.Addr = flags.Addr
		case "k":
			cfg.Key = flags.Key
		case "c":
			cfg.CryptoKeyPath = flags.CryptoKeyPath
		case "p":
			cfg.PollInterval = flags.PollInterval
		case "r":
			cfg.ReportInterval = flags.ReportInterval
		case "t":
			cfg.TelemetryEnabled = flags.TelemetryEnabled
		case "b":
			cfg.MaxBatchSize = flags.MaxBatchSize
		case "q":
			cfg.MaxQueueSize = flags.MaxQueueSize
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid agent config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

func getConfigPath(flagValue, envValue string) string {
	if envValue != "" {
		return envValue
	}
	return flagValue
}
