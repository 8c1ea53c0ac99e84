// Package agent собирает метрики рантайма и хоста и отправляет их
// на сервер телеметрии через telemetry.Batcher.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/levinOo/go-telemetry-project/internal/agent/config"
	"github.com/levinOo/go-telemetry-project/internal/agent/store"
	"github.com/levinOo/go-telemetry-project/internal/cryptoutil"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/telemetry"
)

// ShutdownTimeout ограничивает финальную отправку при остановке агента.
const ShutdownTimeout = 5 * time.Second

// Collector поставляет события для очереди.
type Collector interface {
	Collect(ctx context.Context) ([]models.MetricEvent, error)
}

// Agent связывает сбор метрик с батчером.
type Agent struct {
	cfg       config.Config
	collector Collector
	batcher   *telemetry.Batcher
	logger    *zap.SugaredLogger
}

// New собирает агента из конфигурации: HTTPPublisher, батчер и сборщик.
func New(cfg config.Config, logger *zap.SugaredLogger) (*Agent, error) {
	opts := []PublisherOption{WithSigningKey(cfg.Key)}

	if cfg.CryptoKeyPath != "" {
		publicKey, err := cryptoutil.LoadPublicKey(cfg.CryptoKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key: %w", err)
		}
		opts = append(opts, WithPublicKey(publicKey))
	}

	publisher, err := NewHTTPPublisher("http://"+cfg.Addr, opts...)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(cfg, publisher, store.NewCollector(), logger), nil
}

// NewWithPublisher создаёт агента с заданными публикатором и сборщиком.
func NewWithPublisher(cfg config.Config, publisher telemetry.Publisher, collector Collector, logger *zap.SugaredLogger) *Agent {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	batcher := telemetry.NewBatcher(publisher,
		telemetry.WithMaxBatchSize(cfg.MaxBatchSize),
		telemetry.WithMaxQueueSize(cfg.MaxQueueSize),
		telemetry.WithLogger(logger),
	)

	a := &Agent{
		cfg:       cfg,
		collector: collector,
		batcher:   batcher,
		logger:    logger,
	}

	batcher.OnTelemetryEnabledChanged(cfg.TelemetryEnabled, a.logEnabled)

	return a
}

// Batcher возвращает батчер агента.
func (a *Agent) Batcher() *telemetry.Batcher {
	return a.batcher
}

// SetTelemetryEnabled переключает отправку телеметрии во время работы.
func (a *Agent) SetTelemetryEnabled(enabled bool) {
	a.batcher.OnTelemetryEnabledChanged(enabled, a.logEnabled)
}

func (a *Agent) logEnabled(enabled bool) {
	a.logger.Infow("Telemetry state changed", "enabled", enabled)
}

// Run запускает циклы сбора и отправки и блокируется до отмены ctx.
// После отмены батчер останавливается с финальной отправкой без повторов.
func (a *Agent) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.pollLoop(gctx)
	})
	g.Go(func() error {
		return a.reportLoop(gctx)
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	a.batcher.Shutdown(shutdownCtx)

	stats := a.batcher.Stats()
	a.logger.Infow("Agent stopped",
		"published", stats.PublishedEvents,
		"rejected", stats.Rejected,
		"dropped", stats.DroppedOnCapacity+stats.DroppedAfterFailure,
	)

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (a *Agent) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Poll(ctx)
		}
	}
}

func (a *Agent) reportLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.ReportDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.batcher.Flush(ctx, true)
		}
	}
}

// Poll выполняет один сбор метрик и ставит события в очередь.
func (a *Agent) Poll(ctx context.Context) {
	events, err := a.collector.Collect(ctx)
	if err != nil {
		a.logger.Warnw("Metrics collection incomplete", "error", err)
	}

	for _, e := range events {
		a.batcher.Enqueue(e)
	}
}
