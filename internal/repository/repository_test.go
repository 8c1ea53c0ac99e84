package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

var eventColumns = []string{"id", "name", "created_at", "value", "unit", "metadata"}

func testEvents() []models.MetricEvent {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.MetricEvent{
		{ID: "1", Name: "runtime_Alloc", CreatedAt: at, Value: 42.5, Unit: models.UnitBytes},
		{ID: "2", Name: "agent_PollCount", CreatedAt: at, Value: 1, Unit: models.UnitCount,
			Metadata: map[string]string{"type": "counter"}},
	}
}

func TestDBStorageInsertEventsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	events := testEvents()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO telemetry_events`).
		WithArgs(
			"1", "runtime_Alloc", events[0].CreatedAt, 42.5, models.UnitBytes, []byte("{}"),
			"2", "agent_PollCount", events[1].CreatedAt, 1.0, models.UnitCount, []byte(`{"type":"counter"}`),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	inserted, err := NewDBStorage(db).InsertEventsBatch(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorageInsertEmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inserted, err := NewDBStorage(db).InsertEventsBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorageInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = NewDBStorage(db).InsertEventsBatch(context.Background(), testEvents())
	assert.ErrorContains(t, err, "batch insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorageInsertSplitsLargeBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	events := make([]models.MetricEvent, 2*InsertChunkSize+1)
	for i := range events {
		events[i] = models.MetricEvent{ID: strconv.Itoa(i), Name: "runtime_Alloc"}
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnResult(sqlmock.NewResult(0, InsertChunkSize))
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnResult(sqlmock.NewResult(0, InsertChunkSize-3))
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := NewDBStorage(db).InsertEventsBatch(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 2*InsertChunkSize-2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorageInsertChunkFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	events := make([]models.MetricEvent, InsertChunkSize+1)
	for i := range events {
		events[i] = models.MetricEvent{ID: strconv.Itoa(i), Name: "runtime_Alloc"}
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnResult(sqlmock.NewResult(0, InsertChunkSize))
	mock.ExpectExec(`INSERT INTO telemetry_events`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = NewDBStorage(db).InsertEventsBatch(context.Background(), events)
	assert.ErrorContains(t, err, "batch insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStorageGetAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, created_at, value, unit, metadata`).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("1", "runtime_Alloc", at, 42.5, models.UnitBytes, []byte("{}")).
			AddRow("2", "agent_PollCount", at, 3.0, models.UnitCount, []byte(`{"type":"counter"}`)))

	events, err := NewDBStorage(db).GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Nil(t, events[0].Metadata)
	assert.Equal(t, "counter", events[1].Metadata["type"])
	assert.Equal(t, 3.0, events[1].Value)
}

func TestDBStorageGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM telemetry_events WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err = NewDBStorage(db).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDBStorageCountByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).
			AddRow("agent_PollCount", int64(4)).
			AddRow("runtime_Alloc", int64(2)))

	counts, err := NewDBStorage(db).CountByName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.EventCount{
		{Name: "agent_PollCount", Count: 4},
		{Name: "runtime_Alloc", Count: 2},
	}, counts)
}

func TestMemStorageDeduplicatesByID(t *testing.T) {
	s := NewMemStorage()
	ctx := context.Background()

	inserted, err := s.InsertEventsBatch(ctx, testEvents())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = s.InsertEventsBatch(ctx, testEvents())
	require.NoError(t, err)
	assert.Zero(t, inserted)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
}

func TestMemStorageGetByID(t *testing.T) {
	s := NewMemStorage()
	ctx := context.Background()
	_, err := s.InsertEventsBatch(ctx, testEvents())
	require.NoError(t, err)

	e, err := s.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "agent_PollCount", e.Name)

	_, err = s.GetByID(ctx, "3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStorageCountByName(t *testing.T) {
	s := NewMemStorage()
	ctx := context.Background()

	_, err := s.InsertEventsBatch(ctx, []models.MetricEvent{
		{ID: "a", Name: "z"},
		{ID: "b", Name: "a"},
		{ID: "c", Name: "z"},
	})
	require.NoError(t, err)

	counts, err := s.CountByName(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.EventCount{{Name: "a", Count: 1}, {Name: "z", Count: 2}}, counts)
}

func BenchmarkInsertBatch(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	storage := NewDBStorage(db)
	events := testEvents()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO telemetry_events`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		if _, err := storage.InsertEventsBatch(context.Background(), events); err != nil {
			b.Fatalf("iteration %d failed: %v", i, err)
		}
	}
}
