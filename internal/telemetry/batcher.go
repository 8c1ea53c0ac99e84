// Package telemetry реализует батчер телеметрии: события накапливаются в
// ограниченной очереди и по вызову Flush отправляются пачками через Publisher.
//
// Телеметрия выключена по умолчанию и включается вызовом
// OnTelemetryEnabledChanged(true). При выключении все накопленные события
// удаляются без отправки.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/telemetry/queue"
)

const (
	DefaultMaxBatchSize = 20
	DefaultMaxQueueSize = 10000
)

// Option настраивает Batcher.
type Option func(*Batcher)

// WithMaxBatchSize ограничивает количество событий в одном вызове Publish.
func WithMaxBatchSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxBatchSize = n
		}
	}
}

// WithMaxQueueSize задаёт ёмкость очереди.
func WithMaxQueueSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxQueueSize = n
		}
	}
}

// WithLogger задаёт логгер батчера.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Stats содержит счётчики батчера.
type Stats struct {
	Queued              int
	PublishedEvents     uint64
	PublishedBatches    uint64
	DroppedOnCapacity   uint64
	Rejected            uint64
	DroppedAfterFailure uint64
	Requeued            uint64
	Discarded           uint64
}

type counters struct {
	publishedEvents     atomic.Uint64
	publishedBatches    atomic.Uint64
	droppedOnCapacity   atomic.Uint64
	rejected            atomic.Uint64
	droppedAfterFailure atomic.Uint64
	requeued            atomic.Uint64
	discarded           atomic.Uint64
}

// Batcher накапливает события и отправляет их пачками.
//
// Enqueue никогда не блокируется на отправке: mu удерживается только на время
// изменения очереди и флагов, но не во время вызова Publisher.
// Вызовы Flush и Shutdown выполняются строго последовательно.
type Batcher struct {
	publisher    Publisher
	queue        *queue.EventQueue
	maxBatchSize int
	maxQueueSize int
	logger       *zap.SugaredLogger

	mu       sync.Mutex
	enabled  bool
	shutdown bool

	flushMu sync.Mutex

	stats counters
}

// NewBatcher создаёт выключенный батчер, отправляющий события через publisher.
func NewBatcher(publisher Publisher, opts ...Option) *Batcher {
	b := &Batcher{
		publisher:    publisher,
		maxBatchSize: DefaultMaxBatchSize,
		maxQueueSize: DefaultMaxQueueSize,
		logger:       zap.NewNop().Sugar(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.queue = queue.New(b.maxQueueSize)

	return b
}

// Enqueue ставит событие в очередь. Вызов ничего не делает, если телеметрия
// выключена или батчер остановлен; при переполнении очереди событие теряется.
func (b *Batcher) Enqueue(event models.MetricEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown || !b.enabled {
		return
	}

	if !b.queue.Offer(event) {
		b.stats.droppedOnCapacity.Add(1)
		b.logger.Debugw("Telemetry queue is full, event dropped", "event", event.Name, "capacity", b.maxQueueSize)
	}
}

// OnTelemetryEnabledChanged включает или выключает телеметрию. При выключении
// очередь очищается до возврата. Колбэки вызываются после применения нового
// состояния и без удержания блокировки, поэтому могут обращаться к батчеру.
func (b *Batcher) OnTelemetryEnabledChanged(enabled bool, callbacks ...func(bool)) {
	b.mu.Lock()
	b.enabled = enabled
	discarded := 0
	if !enabled {
		discarded = b.queue.Clear()
	}
	b.mu.Unlock()

	if discarded > 0 {
		b.stats.discarded.Add(uint64(discarded))
	}
	b.logger.Infow("Telemetry enablement changed", "enabled", enabled, "discarded", discarded)

	for _, cb := range callbacks {
		if cb != nil {
			cb(enabled)
		}
	}
}

// IsEnabled сообщает, включена ли телеметрия.
func (b *Batcher) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Flush отправляет события, находящиеся в очереди на момент вызова, пачками
// не больше maxBatchSize. Если телеметрия выключена, очередь очищается без отправки.
//
// Пачка, отвергнутая сервисом (4xx), отбрасывается. При временной ошибке и
// shouldRetry пачка возвращается в голову очереди, а текущий Flush
// завершается; без shouldRetry пачка отбрасывается.
func (b *Batcher) Flush(ctx context.Context, shouldRetry bool) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.flush(ctx, shouldRetry)
}

// Shutdown выполняет последнюю отправку без повторов и навсегда запрещает
// постановку событий в очередь. Повторные вызовы ничего не делают.
func (b *Batcher) Shutdown(ctx context.Context) {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return
	}
	b.shutdown = true
	b.mu.Unlock()

	b.logger.Infow("Shutting down telemetry batcher", "queued", b.queue.Len())

	b.flushMu.Lock()
	b.flush(ctx, false)
	b.flushMu.Unlock()

	b.mu.Lock()
	b.enabled = false
	b.mu.Unlock()
}

// EventQueue возвращает копию текущего содержимого очереди.
func (b *Batcher) EventQueue() []models.MetricEvent {
	return b.queue.Snapshot()
}

// Stats возвращает текущие значения счётчиков.
func (b *Batcher) Stats() Stats {
	return Stats{
		Queued:              b.queue.Len(),
		PublishedEvents:     b.stats.publishedEvents.Load(),
		PublishedBatches:    b.stats.publishedBatches.Load(),
		DroppedOnCapacity:   b.stats.droppedOnCapacity.Load(),
		Rejected:            b.stats.rejected.Load(),
		DroppedAfterFailure: b.stats.droppedAfterFailure.Load(),
		Requeued:            b.stats.requeued.Load(),
		Discarded:           b.stats.discarded.Load(),
	}
}

// flush must be called with flushMu held.
func (b *Batcher) flush(ctx context.Context, shouldRetry bool) {
	b.mu.Lock()
	if !b.enabled {
		discarded := b.queue.Clear()
		b.mu.Unlock()
		if discarded > 0 {
			b.stats.discarded.Add(uint64(discarded))
			b.logger.Debugw("Telemetry disabled, queued events discarded", "count", discarded)
		}
		return
	}
	remaining := b.queue.Len()
	b.mu.Unlock()

	for remaining > 0 {
		b.mu.Lock()
		if !b.enabled {
			b.mu.Unlock()
			return
		}
		batch := b.queue.DrainUpTo(min(b.maxBatchSize, remaining))
		b.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		remaining -= len(batch)

		err := b.publish(ctx, batch)
		switch {
		case err == nil:
			b.stats.publishedBatches.Add(1)
			b.stats.publishedEvents.Add(uint64(len(batch)))
		case IsClientRejection(err):
			b.stats.rejected.Add(uint64(len(batch)))
			b.logger.Warnw("Telemetry batch rejected, dropping", "size", len(batch), "error", err)
		case !shouldRetry:
			b.stats.droppedAfterFailure.Add(uint64(len(batch)))
			b.logger.Warnw("Failed to publish telemetry batch, dropping", "size", len(batch), "error", err)
		default:
			b.requeue(batch, err)
			return
		}
	}
}

func (b *Batcher) requeue(batch []models.MetricEvent, cause error) {
	b.mu.Lock()
	if !b.enabled {
		b.mu.Unlock()
		b.stats.discarded.Add(uint64(len(batch)))
		return
	}
	dropped := b.queue.PushFront(batch)
	b.mu.Unlock()

	b.stats.requeued.Add(uint64(len(batch)))
	if dropped > 0 {
		b.stats.droppedOnCapacity.Add(uint64(dropped))
	}
	b.logger.Warnw("Failed to publish telemetry batch, will retry on next flush",
		"size", len(batch),
		"dropped", dropped,
		"error", cause,
	)
}

// publish runs the publisher on its own goroutine and waits for the outcome.
// A panic inside the publisher is converted into a transient error.
func (b *Batcher) publish(ctx context.Context, batch []models.MetricEvent) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("publisher panic: %v", r)
			}
		}()
		done <- b.publisher.Publish(ctx, batch)
	}()

	return <-done
}
