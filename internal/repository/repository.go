package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

// ErrNotFound возвращается, если событие с запрошенным ID не сохранено.
var ErrNotFound = errors.New("event not found")

// Storage хранит принятые события телеметрии. Повторная вставка события
// с уже известным ID игнорируется, поэтому повторная доставка пачки безопасна.
type Storage interface {
	InsertEventsBatch(ctx context.Context, events []models.MetricEvent) (int, error)
	GetByID(ctx context.Context, id string) (models.MetricEvent, error)
	GetAll(ctx context.Context) ([]models.MetricEvent, error)
	CountByName(ctx context.Context) ([]models.EventCount, error)
	Ping(ctx context.Context) error
}

// --------------------- DBStorage ---------------------

type DBStorage struct {
	db *sql.DB
}

func NewDBStorage(db *sql.DB) *DBStorage {
	return &DBStorage{db: db}
}

// InsertChunkSize ограничивает число событий в одном INSERT: каждое событие
// занимает 6 параметров, а PostgreSQL принимает не больше 65535 параметров
// в запросе.
const InsertChunkSize = 10000

// InsertEventsBatch вставляет события в одной транзакции частями
// по InsertChunkSize и возвращает число новых строк.
func (d *DBStorage) InsertEventsBatch(ctx context.Context, events []models.MetricEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for start := 0; start < len(events); start += InsertChunkSize {
		chunk := events[start:min(start+InsertChunkSize, len(events))]

		inserted, err := insertChunk(ctx, tx, chunk)
		if err != nil {
			return 0, err
		}
		total += inserted
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}

	return total, nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, events []models.MetricEvent) (int, error) {
	valueStrings := make([]string, 0, len(events))
	valueArgs := make([]any, 0, len(events)*6)
	argIndex := 1

	for _, e := range events {
		metadata, err := encodeMetadata(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode metadata of %s: %w", e.ID, err)
		}

		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			argIndex, argIndex+1, argIndex+2, argIndex+3, argIndex+4, argIndex+5))
		valueArgs = append(valueArgs, e.ID, e.Name, e.CreatedAt, e.Value, e.Unit, metadata)
		argIndex += 6
	}

	query := fmt.Sprintf(`
		INSERT INTO telemetry_events (id, name, created_at, value, unit, metadata)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	res, err := tx.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("batch insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(inserted), nil
}

func (d *DBStorage) GetByID(ctx context.Context, id string) (models.MetricEvent, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, value, unit, metadata
		FROM telemetry_events WHERE id = $1
	`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MetricEvent{}, ErrNotFound
	}
	return e, err
}

func (d *DBStorage) GetAll(ctx context.Context) ([]models.MetricEvent, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, created_at, value, unit, metadata
		FROM telemetry_events ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.MetricEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (d *DBStorage) CountByName(ctx context.Context) ([]models.EventCount, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, COUNT(*) FROM telemetry_events GROUP BY name ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.EventCount
	for rows.Next() {
		var c models.EventCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (d *DBStorage) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (models.MetricEvent, error) {
	var (
		e        models.MetricEvent
		metadata []byte
	)

	if err := s.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.Value, &e.Unit, &metadata); err != nil {
		return models.MetricEvent{}, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return models.MetricEvent{}, fmt.Errorf("failed to decode metadata of %s: %w", e.ID, err)
		}
		if len(e.Metadata) == 0 {
			e.Metadata = nil
		}
	}

	return e, nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// --------------------- MemStorage ---------------------

type MemStorage struct {
	mu     sync.RWMutex
	events []models.MetricEvent
	byID   map[string]int
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		byID: make(map[string]int),
	}
}

// InsertEventsBatch добавляет события, пропуская уже сохранённые ID.
func (m *MemStorage) InsertEventsBatch(_ context.Context, events []models.MetricEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, e := range events {
		if _, ok := m.byID[e.ID]; ok {
			continue
		}
		m.byID[e.ID] = len(m.events)
		m.events = append(m.events, e)
		inserted++
	}

	return inserted, nil
}

func (m *MemStorage) GetByID(_ context.Context, id string) (models.MetricEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return models.MetricEvent{}, ErrNotFound
	}
	return m.events[i], nil
}

// GetAll возвращает копию событий в порядке вставки.
func (m *MemStorage) GetAll(_ context.Context) ([]models.MetricEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MetricEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemStorage) CountByName(_ context.Context) ([]models.EventCount, error) {
	m.mu.RLock()
	counts := make(map[string]int64)
	for _, e := range m.events {
		counts[e.Name]++
	}
	m.mu.RUnlock()

	out := make([]models.EventCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.EventCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (m *MemStorage) Ping(_ context.Context) error {
	return nil
}
