// Package queue реализует ограниченную FIFO-очередь телеметрийных событий.
// Очередь не содержит бизнес-логики: при переполнении новые события
// отбрасываются, а ранее принятые сохраняются.
package queue

import (
	"fmt"
	"sync"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

// EventQueue хранит события в порядке поступления и никогда не превышает
// заданную ёмкость. Все методы безопасны для конкурентного вызова.
type EventQueue struct {
	mu      sync.Mutex
	events  []models.MetricEvent
	maxSize int
}

// New создаёт очередь ёмкостью maxSize. Ёмкость должна быть положительной.
func New(maxSize int) *EventQueue {
	if maxSize <= 0 {
		panic(fmt.Sprintf("queue: maxSize must be positive, got %d", maxSize)) //nolint:exitcheck
	}
	return &EventQueue{
		events:  make([]models.MetricEvent, 0, min(maxSize, 1024)),
		maxSize: maxSize,
	}
}

// Offer добавляет событие в хвост очереди. Возвращает false, если очередь
// заполнена; в этом случае событие отбрасывается.
func (q *EventQueue) Offer(e models.MetricEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) >= q.maxSize {
		return false
	}
	q.events = append(q.events, e)
	return true
}

// DrainUpTo извлекает из головы очереди не более n событий с сохранением порядка.
func (q *EventQueue) DrainUpTo(n int) []models.MetricEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.events) == 0 {
		return nil
	}

	n = min(n, len(q.events))
	out := make([]models.MetricEvent, n)
	copy(out, q.events[:n])

	clear(q.events[:n])
	q.events = q.events[n:]
	if len(q.events) == 0 {
		q.events = q.events[:0:0]
	}

	return out
}

// PushFront возвращает события в голову очереди в исходном порядке.
// Возвращённые события имеют приоритет над более новыми: если ёмкость
// превышена, отбрасываются самые новые события из хвоста.
// Возвращает количество отброшенных событий.
func (q *EventQueue) PushFront(events []models.MetricEvent) int {
	if len(events) == 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]models.MetricEvent, 0, min(len(events)+len(q.events), q.maxSize))
	merged = append(merged, events...)
	merged = append(merged, q.events...)

	dropped := 0
	if len(merged) > q.maxSize {
		dropped = len(merged) - q.maxSize
		merged = merged[:q.maxSize]
	}

	q.events = merged
	return dropped
}

// Clear удаляет все события и возвращает их количество.
func (q *EventQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.events)
	q.events = q.events[:0:0]
	return n
}

// Len возвращает количество событий в очереди.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// IsEmpty сообщает, пуста ли очередь.
func (q *EventQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Cap возвращает ёмкость очереди.
func (q *EventQueue) Cap() int {
	return q.maxSize
}

// Snapshot возвращает копию содержимого очереди для диагностики.
func (q *EventQueue) Snapshot() []models.MetricEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.MetricEvent, len(q.events))
	copy(out, q.events)
	return out
}
