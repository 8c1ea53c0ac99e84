// Package models содержит структуры данных, описывающие основные сущности предметной области.
// Пакет не содержит бизнес-логику и используется для передачи данных между слоями приложения.
package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Константы единиц измерения, которые агент проставляет собираемым событиям.
const (
	// UnitBytes используется для метрик памяти.
	UnitBytes = "bytes"

	// UnitCount используется для счётчиков.
	UnitCount = "count"

	// UnitPercent используется для долей и процентов.
	UnitPercent = "percent"

	// UnitNone используется, когда единица измерения не определена.
	UnitNone = "none"
)

// MetricEvent представляет одно телеметрийное событие.
// Событие создаётся производителем в момент наблюдаемого действия и
// после создания не изменяется: очередь и батчер передают его по значению.
type MetricEvent struct {
	// ID содержит уникальный идентификатор события, пригодный для дедупликации на приёмной стороне.
	ID string `json:"id"`

	// Name содержит имя метрики вместе с пространством имён, например "runtime_HeapAlloc".
	Name string `json:"name"`

	// CreatedAt содержит время создания события.
	CreatedAt time.Time `json:"created_at"`

	// Value содержит числовое значение события.
	Value float64 `json:"value"`

	// Unit содержит единицу измерения значения.
	Unit string `json:"unit,omitempty"`

	// Metadata содержит произвольные типизированные поля события.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EventOption настраивает событие при создании.
type EventOption func(*MetricEvent)

// WithValue задаёт значение и единицу измерения события.
func WithValue(value float64, unit string) EventOption {
	return func(e *MetricEvent) {
		e.Value = value
		e.Unit = unit
	}
}

// WithCreatedAt переопределяет время создания события.
func WithCreatedAt(t time.Time) EventOption {
	return func(e *MetricEvent) {
		e.CreatedAt = t
	}
}

// WithMetadata добавляет поля события. Переданная карта копируется.
func WithMetadata(metadata map[string]string) EventOption {
	return func(e *MetricEvent) {
		if len(metadata) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(metadata))
		}
		maps.Copy(e.Metadata, metadata)
	}
}

// NewMetricEvent создаёт событие с новым идентификатором и текущим временем.
func NewMetricEvent(name string, opts ...EventOption) MetricEvent {
	e := MetricEvent{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Unit:      UnitNone,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// MetadataValue возвращает значение поля метаданных по ключу.
func (e MetricEvent) MetadataValue(key string) (string, bool) {
	v, ok := e.Metadata[key]
	return v, ok
}

// EventBatch содержит пачку событий, передаваемую за один вызов публикации.
type EventBatch struct {
	// Events содержит события в порядке постановки в очередь.
	Events []MetricEvent `json:"events"`
}

// Len возвращает количество событий в пачке.
func (b EventBatch) Len() int {
	return len(b.Events)
}

// Names возвращает имена событий пачки в исходном порядке.
func (b EventBatch) Names() []string {
	names := make([]string, 0, len(b.Events))
	for _, e := range b.Events {
		names = append(names, e.Name)
	}
	return names
}

// EventCount содержит количество сохранённых событий с одним именем.
type EventCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
