// Package config предоставляет функциональность для управления конфигурацией сервера телеметрии.
// Значения применяются в порядке возрастания приоритета: значения по умолчанию,
// JSON-файл (-config или CONFIG), явно заданные флаги командной строки, переменные окружения.
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

// Config содержит все параметры конфигурации сервера телеметрии.
type Config struct {
	// Addr задает адрес и порт HTTP-сервера (например, "localhost:8080").
	Addr string `env:"ADDRESS" json:"address"`

	// StoreInterval определяет интервал в секундах между автоматическими сохранениями событий на диск.
	// Значение 0 означает сохранение после каждого принятого пакета.
	StoreInterval int `env:"STORE_INTERVAL" json:"store_interval"`

	// FileStorage указывает путь к файлу снимка событий. Пустое значение отключает снимки.
	FileStorage string `env:"FILE_STORAGE_PATH" json:"file_storage_path"`

	// Restore определяет, нужно ли восстанавливать события из файла при запуске сервера.
	Restore bool `env:"RESTORE" json:"restore"`

	// AddrDB содержит строку подключения к базе данных PostgreSQL (DSN).
	// Если не указано, используется хранилище в памяти.
	AddrDB string `env:"DATABASE_DSN" json:"database_dsn"`

	// Key содержит секретный ключ для проверки подписей HMAC SHA256.
	// Пустое значение отключает проверку подписей.
	Key string `env:"KEY" json:"key"`

	// CryptoKeyPath указывает путь к закрытому ключу сервера. Пустое значение отключает расшифровку.
	CryptoKeyPath string `env:"CRYPTO_KEY" json:"crypto_key"`

	// AuditFile указывает путь к файлу для записи аудит-логов.
	AuditFile string `env:"AUDIT_FILE" json:"audit_file"`

	// AuditURL содержит URL для отправки аудит-событий на внешний сервис.
	AuditURL string `env:"AUDIT_URL" json:"audit_url"`

	// Profiling подключает обработчики net/http/pprof под /debug.
	Profiling bool `env:"PPROF" json:"pprof"`

	LogLevel string `env:"LOG_LEVEL" json:"log_level"`

	ConfigPath string `env:"CONFIG" json:"-"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Addr:          "localhost:8080",
		StoreInterval: 300,
		FileStorage:   "storage.json",
		LogLevel:      "info",
	}
}

// StoreDuration возвращает интервал сохранения снимков.
func (c Config) StoreDuration() time.Duration {
	return time.Duration(c.StoreInterval) * time.Second
}

// Validate проверяет согласованность параметров.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if c.StoreInterval < 0 {
		errs = append(errs, fmt.Errorf("store interval must not be negative, got %d", c.StoreInterval))
	}
	if c.Restore && c.FileStorage == "" {
		errs = append(errs, errors.New("restore requires a file storage path"))
	}
	return errors.Join(errs...)
}

// Load загружает конфигурацию из args (без имени программы), JSON-файла и окружения.
//
// Поддерживаемые флаги:
//
//	-a: адрес сервера (по умолчанию "localhost:8080")
//	-i: интервал сохранения в секундах (по умолчанию 300)
//	-f: путь к файлу хранилища (по умолчанию "storage.json")
//	-r: восстанавливать ли события при запуске
//	-d: строка подключения к базе данных
//	-k: ключ для HMAC
//	-c: путь к закрытому ключу
//	-audit-file: путь к файлу аудита
//	-audit-url: URL для аудита
//	-pprof: включить профилирование
//	-config: путь к JSON-файлу конфигурации
func Load(args []string) (Config, error) {
	cfg := Default()
	flags := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&flags.Addr, "a", flags.Addr, "HTTP server address")
	fs.IntVar(&flags.StoreInterval, "i", flags.StoreInterval, "store interval in seconds")
	fs.StringVar(&flags.FileStorage, "f", flags.FileStorage, "path to storage file")
	fs.BoolVar(&flags.Restore, "r", flags.Restore, "restore events from file on startup")
	fs.StringVar(&flags.AddrDB, "d", flags.AddrDB, "database DSN")
	fs.StringVar(&flags.Key, "k", flags.Key, "HMAC key")
	fs.StringVar(&flags.CryptoKeyPath, "c", flags.CryptoKeyPath, "path to private key")
	fs.StringVar(&flags.AuditFile, "audit-file", flags.AuditFile, "audit file path")
	fs.StringVar(&flags.AuditURL, "audit-url", flags.AuditURL, "audit url")
	fs.BoolVar(&flags.Profiling, "pprof", flags.Profiling, "expose pprof handlers under /debug")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level")
	fs.StringVar(&flags.ConfigPath, "config", "", "path to JSON config file")

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
		case "i":
			cfg.StoreInterval = flags.StoreInterval
		case "f":
			cfg.FileStorage = flags.FileStorage
		case "r":
			cfg.Restore = flags.Restore
		case "d":
			cfg.AddrDB = flags.AddrDB
		case "k":
			cfg.Key = flags.Key
		case "c":
			cfg.CryptoKeyPath = flags.CryptoKeyPath
		case "audit-file":
			cfg.AuditFile = flags.AuditFile
		case "audit-url":
			cfg.AuditURL = flags.AuditURL
		case "pprof":
			cfg.Profiling = flags.Profiling
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid server config: %w", err)
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

// getConfigPath отдаёт приоритет переменной окружения CONFIG.
func getConfigPath(flagValue, envValue string) string {
	if envValue != "" {
		return envValue
	}
	return flagValue
}
