package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/levinOo/go-telemetry-project/internal/handler"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/repository"
	"github.com/levinOo/go-telemetry-project/internal/service"
)

// Example_updatesBatch демонстрирует отправку пачки событий через API.
func Example_updatesBatch() {
	storage := repository.NewMemStorage()
	sugar := zap.NewNop().Sugar()

	ts := httptest.NewServer(handler.NewRouter(storage, sugar, handler.Options{}))
	defer ts.Close()

	batch := models.EventBatch{Events: []models.MetricEvent{
		models.NewMetricEvent("runtime_Alloc", models.WithValue(1024, models.UnitBytes)),
		models.NewMetricEvent("agent_PollCount", models.WithValue(1, models.UnitCount)),
	}}
	body, _ := json.Marshal(batch)

	resp, err := http.Post(ts.URL+"/updates", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var result handler.UpdatesResponse
	json.NewDecoder(resp.Body).Decode(&result)

	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Inserted: %d\n", result.Inserted)
	// Output:
	// Status: 200
	// Inserted: 2
}

// Example_rejectedBatch демонстрирует ответ 400 на пачку без событий.
func Example_rejectedBatch() {
	ts := httptest.NewServer(handler.NewRouter(repository.NewMemStorage(), zap.NewNop().Sugar(), handler.Options{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/updates", "application/json", bytes.NewBufferString(`{"events":[]}`))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	// Output: Status: 400
}

// Example_snapshot демонстрирует сохранение и восстановление снимка событий.
func Example_snapshot() {
	dir, _ := os.MkdirTemp("", "snapshot")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "events.json")

	ctx := context.Background()
	sugar := zap.NewNop().Sugar()

	src := repository.NewMemStorage()
	src.InsertEventsBatch(ctx, []models.MetricEvent{{ID: "1", Name: "runtime_Alloc"}})
	if err := service.SaveToFile(ctx, src, path, sugar); err != nil {
		log.Fatal(err)
	}

	dst := repository.NewMemStorage()
	if err := service.LoadFromFile(ctx, dst, path, sugar); err != nil {
		log.Fatal(err)
	}

	counts, _ := dst.CountByName(ctx)
	fmt.Printf("%s: %d\n", counts[0].Name, counts[0].Count)
	// Output: runtime_Alloc: 1
}
