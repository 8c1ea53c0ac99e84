// Package handler содержит HTTP-обработчики сервера телеметрии.
package handler

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/levinOo/go-telemetry-project/internal/audit"
	"github.com/levinOo/go-telemetry-project/internal/logger"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/repository"
)

// Options содержит необязательные параметры маршрутизатора.
type Options struct {
	// Key включает проверку HashSHA256.
	Key string

	// PrivateKey включает расшифровку тел с заголовком X-Encrypted.
	PrivateKey *rsa.PrivateKey

	// Auditer получает событие о каждой принятой пачке.
	Auditer audit.Observer

	// OnBatchStored вызывается после успешного сохранения пачки.
	OnBatchStored func(ctx context.Context)

	// Profiling монтирует pprof под /debug.
	Profiling bool
}

// UpdatesResponse возвращается агенту на успешный POST /updates.
type UpdatesResponse struct {
	Accepted int `json:"accepted"`
	Inserted int `json:"inserted"`
}

// NewRouter собирает chi-маршрутизатор сервера.
func NewRouter(storage repository.Storage, sugar *zap.SugaredLogger, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.Middleware(sugar))

	r.Get("/", GetListHandler(storage, sugar))
	r.Get("/ping", PingHandler(storage))
	r.Get("/event/{id}", GetEventHandler(storage))

	if opts.Profiling {
		r.Mount("/debug", middleware.Profiler())
	}

	r.With(
		DecryptMiddleware(opts.PrivateKey),
		DecompressMiddleware,
		HashMiddleware(opts.Key),
	).Post("/updates", UpdatesHandler(storage, sugar, opts))

	return r
}

// UpdatesHandler принимает пачку событий. Некорректная пачка отвергается
// с 400, тело больше MaxBodySize с 413, ошибка хранилища возвращает 500,
// чтобы агент повторил отправку.
func UpdatesHandler(storage repository.Storage, sugar *zap.SugaredLogger, opts Options) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var batch models.EventBatch

		if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, MaxBodySize)).Decode(&batch); err != nil {
			http.Error(rw, "Invalid JSON: "+err.Error(), readErrorStatus(err))
			return
		}

		if err := validateBatch(batch); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}

		inserted, err := storage.InsertEventsBatch(r.Context(), batch.Events)
		if err != nil {
			sugar.Errorw("Failed to store batch", "size", batch.Len(), "error", err)
			http.Error(rw, "Failed to store events", http.StatusInternalServerError)
			return
		}

		sugar.Debugw("Batch stored", "accepted", batch.Len(), "inserted", inserted)

		if opts.Auditer != nil {
			opts.Auditer.NotifyClients(r.Context(), audit.NewAuditEvent(batch, clientIP(r)))
		}
		if opts.OnBatchStored != nil {
			opts.OnBatchStored(r.Context())
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(rw).Encode(UpdatesResponse{Accepted: batch.Len(), Inserted: inserted}); err != nil {
			sugar.Warnw("Response encode error", "error", err)
		}
	}
}

func validateBatch(batch models.EventBatch) error {
	if batch.Len() == 0 {
		return errors.New("empty batch")
	}
	for i, e := range batch.Events {
		if e.ID == "" {
			return fmt.Errorf("event %d has no id", i)
		}
		if e.Name == "" {
			return fmt.Errorf("event %s has no name", e.ID)
		}
	}
	return nil
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PingHandler проверяет доступность хранилища.
func PingHandler(storage repository.Storage) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := storage.Ping(ctx); err != nil {
			http.Error(rw, "Storage is unreachable", http.StatusInternalServerError)
			return
		}

		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("Storage is reachable"))
	}
}

// GetEventHandler возвращает сохранённое событие по ID.
func GetEventHandler(storage repository.Storage) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		e, err := storage.GetByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(rw, "Event not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(rw, "Failed to read event", http.StatusInternalServerError)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		json.NewEncoder(rw).Encode(e)
	}
}

// GetListHandler выводит количество сохранённых событий по именам
// в виде HTML или простого текста в зависимости от Accept.
func GetListHandler(storage repository.Storage, sugar *zap.SugaredLogger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		counts, err := storage.CountByName(r.Context())
		if err != nil {
			http.Error(rw, "Failed to read events", http.StatusInternalServerError)
			return
		}

		var sb strings.Builder
		contentType := "text/plain"

		if strings.Contains(r.Header.Get("Accept"), "text/html") {
			contentType = "text/html"
			sb.WriteString("<html><body><h1>Telemetry events</h1><ul>")
			for _, c := range counts {
				sb.WriteString(fmt.Sprintf("<li>%s: %d</li>", html.EscapeString(c.Name), c.Count))
			}
			sb.WriteString("</ul></body></html>")
		} else {
			for _, c := range counts {
				sb.WriteString(fmt.Sprintf("%s: %d\n", c.Name, c.Count))
			}
		}

		rw.Header().Set("Content-Type", contentType)

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			rw.WriteHeader(http.StatusOK)

			gz := gzip.NewWriter(rw)
			defer gz.Close()

			if _, err := gz.Write([]byte(sb.String())); err != nil {
				sugar.Warnw("Gzip write error", "error", err)
			}
			return
		}

		rw.WriteHeader(http.StatusOK)
		if _, err := rw.Write([]byte(sb.String())); err != nil {
			sugar.Warnw("Write error", "error", err)
		}
	}
}
