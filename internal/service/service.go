// Package service управляет жизненным циклом сервера телеметрии: выбором
// хранилища, восстановлением и периодическим сохранением снимка событий,
// аудитом и корректным завершением работы.
package service

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/levinOo/go-telemetry-project/internal/audit"
	"github.com/levinOo/go-telemetry-project/internal/config"
	"github.com/levinOo/go-telemetry-project/internal/config/db"
	"github.com/levinOo/go-telemetry-project/internal/cryptoutil"
	"github.com/levinOo/go-telemetry-project/internal/handler"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/repository"
	"github.com/levinOo/go-telemetry-project/migrations"
)

// ShutdownTimeout ограничивает время корректного завершения HTTP-сервера.
const ShutdownTimeout = 30 * time.Second

// Server содержит все компоненты, необходимые для работы сервера телеметрии.
type Server struct {
	cfg    config.Config
	server *http.Server
	store  repository.Storage
	saver  *PeriodicSaver
	logger *zap.SugaredLogger
	dbConn *sql.DB

	// saveMu упорядочивает запись снимка: GetAll и замена файла выполняются
	// атомарно относительно других сохранений.
	saveMu sync.Mutex
}

// Serve создаёт сервер и блокируется до отмены ctx, после чего
// останавливает его с финальным сохранением снимка.
func Serve(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) error {
	srv, err := NewServer(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// NewServer выбирает хранилище, при необходимости восстанавливает события
// из файла и собирает маршрутизатор.
func NewServer(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) (*Server, error) {
	sugar.Infow("Starting server with config",
		"address", cfg.Addr,
		"storeInterval", cfg.StoreInterval,
		"fileStorage", cfg.FileStorage,
		"restore", cfg.Restore,
		"database", cfg.AddrDB != "",
		"audit_file", cfg.AuditFile,
		"audit_url", cfg.AuditURL,
		"pprof", cfg.Profiling,
	)

	s := &Server{cfg: cfg, logger: sugar}

	if cfg.AddrDB != "" {
		conn, err := db.ConnectDB(ctx, cfg.AddrDB, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}

		if err := migrations.RunMigrations(cfg.AddrDB); err != nil {
			conn.Close()
			return nil, err
		}

		s.dbConn = conn
		s.store = repository.NewDBStorage(conn)
	} else {
		s.store = repository.NewMemStorage()
	}

	if cfg.Restore {
		if err := LoadFromFile(ctx, s.store, cfg.FileStorage, sugar); err != nil {
			sugar.Errorw("Failed to load events from file", "error", err)
		}
	}

	privateKey, err := loadPrivateKey(cfg.CryptoKeyPath)
	if err != nil {
		s.closeDB()
		return nil, err
	}

	opts := handler.Options{
		Key:        cfg.Key,
		PrivateKey: privateKey,
		Auditer:    audit.NewFromConfig(cfg.AuditFile, cfg.AuditURL, sugar),
		Profiling:  cfg.Profiling,
	}

	if cfg.FileStorage != "" {
		if cfg.StoreInterval > 0 {
			s.saver = NewPeriodicSaver(s.store, cfg.FileStorage, cfg.StoreDuration(), sugar)
		} else {
			opts.OnBatchStored = func(ctx context.Context) {
				if err := s.saveSnapshot(ctx); err != nil {
					sugar.Errorw("Failed to save events", "error", err)
				}
			}
		}
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.NewRouter(s.store, sugar, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, nil
	}
	if err := cryptoutil.EnsureKeypair(path); err != nil {
		return nil, fmt.Errorf("failed to prepare keypair: %w", err)
	}
	key, err := cryptoutil.LoadPrivateKey(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	return key, nil
}

// Handler возвращает HTTP-обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Storage возвращает выбранное хранилище.
func (s *Server) Storage() repository.Storage {
	return s.store
}

// Run запускает HTTP-сервер и периодическое сохранение, а после отмены ctx
// выполняет корректное завершение.
func (s *Server) Run(ctx context.Context) error {
	if s.saver != nil {
		s.saver.Start()
	}

	serverErr := make(chan error, 1)

	go func() {
		s.logger.Infow("HTTP server started", "address", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			s.logger.Errorw("Server error", "error", err)
			if s.saver != nil {
				s.saver.Stop()
			}
			s.closeDB()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Infoln("Shutting down server...")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	if s.saver != nil {
		s.saver.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Errorw("Server shutdown error", "error", err)
	}

	defer s.closeDB()

	s.logger.Infow("Performing final save on shutdown", "file", s.cfg.FileStorage)
	if err := s.saveSnapshot(ctx); err != nil {
		return fmt.Errorf("failed to save events on shutdown: %w", err)
	}

	s.logger.Infoln("Events saved and server stopped gracefully")
	return nil
}

func (s *Server) saveSnapshot(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return SaveToFile(ctx, s.store, s.cfg.FileStorage, s.logger)
}

func (s *Server) closeDB() {
	if s.dbConn == nil {
		return
	}
	s.logger.Infow("Closing database connection")
	if err := s.dbConn.Close(); err != nil {
		s.logger.Errorw("Error closing database connection", "error", err)
	}
	s.dbConn = nil
}

// PeriodicSaver управляет периодическим сохранением снимка событий на диск.
type PeriodicSaver struct {
	store    repository.Storage
	interval time.Duration
	filePath string
	logger   *zap.SugaredLogger
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPeriodicSaver создаёт PeriodicSaver. Сохранение необходимо запустить
// методом Start и остановить методом Stop.
func NewPeriodicSaver(store repository.Storage, filePath string, interval time.Duration, logger *zap.SugaredLogger) *PeriodicSaver {
	return &PeriodicSaver{
		store:    store,
		interval: interval,
		filePath: filePath,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает сохранение в фоновой горутине.
func (ps *PeriodicSaver) Start() {
	go func() {
		defer close(ps.done)
		ticker := time.NewTicker(ps.interval)
		defer ticker.Stop()

		ps.logger.Infow("Starting periodic save", "interval", ps.interval, "file", ps.filePath)

		for {
			select {
			case <-ticker.C:
				if err := SaveToFile(context.Background(), ps.store, ps.filePath, ps.logger); err != nil {
					ps.logger.Errorw("Failed to save events", "error", err)
				}
			case <-ps.stopCh:
				ps.logger.Debugw("Stopping periodic save")
				return
			}
		}
	}()
}

// Stop останавливает сохранение и ожидает завершения фоновой горутины.
// Повторные вызовы ничего не делают.
func (ps *PeriodicSaver) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.stopCh)
		<-ps.done
	})
}

// SaveToFile записывает все события хранилища в файл. Запись выполняется
// через временный файл, поэтому прерванное сохранение не портит снимок.
func SaveToFile(ctx context.Context, store repository.Storage, fileName string, sugar *zap.SugaredLogger) error {
	if fileName == "" {
		sugar.Debugw("Save skipped - no filename specified")
		return nil
	}

	events, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all events: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize events: %w", err)
	}

	if err := writeFileAtomic(fileName, data); err != nil {
		return fmt.Errorf("failed to write file %s: %w", fileName, err)
	}

	sugar.Debugw("Successfully saved events", "file", fileName, "count", len(events), "size", len(data))
	return nil
}

// LoadFromFile восстанавливает события из снимка. Отсутствующий или пустой
// файл не является ошибкой.
func LoadFromFile(ctx context.Context, store repository.Storage, fileName string, sugar *zap.SugaredLogger) error {
	if fileName == "" {
		return nil
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sugar.Infow("Events file does not exist, starting with empty storage", "file", fileName)
			return nil
		}
		return fmt.Errorf("failed to read events file %s: %w", fileName, err)
	}

	if len(data) == 0 {
		sugar.Infow("Events file is empty, starting with empty storage", "file", fileName)
		return nil
	}

	var events []models.MetricEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("failed to unmarshal events from %s: %w", fileName, err)
	}

	inserted, err := store.InsertEventsBatch(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to restore events: %w", err)
	}

	sugar.Infow("Events loaded successfully", "file", fileName, "count", inserted)
	return nil
}

func writeFileAtomic(fileName string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fileName), filepath.Base(fileName)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), fileName)
}
