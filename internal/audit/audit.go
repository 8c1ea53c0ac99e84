// Package audit реализует аудит принятых пачек телеметрии.
// Использует паттерн Observer для уведомления подписчиков
// (файл, внешний HTTP-сервис) о каждой принятой пачке.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mailru/easyjson"
	"go.uber.org/zap"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

// Observer определяет интерфейс наблюдателя для системы аудита.
type Observer interface {
	// RegisterClient добавляет нового подписчика для получения уведомлений.
	RegisterClient(Consumer)

	// NotifyClients отправляет событие всем зарегистрированным подписчикам.
	NotifyClients(ctx context.Context, event models.AuditEvent)
}

// Consumer обрабатывает события аудита (запись в файл, отправка по HTTP и т.д.).
type Consumer interface {
	Update(ctx context.Context, event models.AuditEvent) error
}

// Auditer координирует отправку событий аудита зарегистрированным подписчикам.
type Auditer struct {
	mu      sync.RWMutex
	clients []Consumer
	logger  *zap.SugaredLogger
}

// NewAuditer создаёт наблюдателя без подписчиков.
func NewAuditer(logger *zap.SugaredLogger) *Auditer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Auditer{logger: logger}
}

// NewFromConfig регистрирует файловый и HTTP-подписчики для непустых path и url.
func NewFromConfig(path, url string, logger *zap.SugaredLogger) *Auditer {
	a := NewAuditer(logger)
	if path != "" {
		a.RegisterClient(NewFileAuditer(path))
	}
	if url != "" {
		a.RegisterClient(NewURLAuditer(url))
	}
	return a
}

// RegisterClient добавляет нового подписчика в список получателей уведомлений.
func (a *Auditer) RegisterClient(c Consumer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients = append(a.clients, c)
}

// Len возвращает число подписчиков.
func (a *Auditer) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.clients)
}

// NotifyClients отправляет событие всем подписчикам. Ошибка одного подписчика
// не мешает доставке остальным и только логируется.
func (a *Auditer) NotifyClients(ctx context.Context, event models.AuditEvent) {
	a.mu.RLock()
	clients := make([]Consumer, len(a.clients))
	copy(clients, a.clients)
	a.mu.RUnlock()

	for _, c := range clients {
		if err := c.Update(ctx, event); err != nil {
			a.logger.Warnw("Audit delivery failed", "consumer", fmt.Sprintf("%T", c), "error", err)
		}
	}
}

// NewAuditEvent формирует событие аудита для принятой пачки.
func NewAuditEvent(batch models.EventBatch, ip string) models.AuditEvent {
	return models.AuditEvent{
		TS:         time.Now().Unix(),
		EventNames: batch.Names(),
		BatchSize:  batch.Len(),
		IP:         ip,
	}
}

// FileAuditer дописывает события аудита в JSON-файл вида {"events": [...]}.
type FileAuditer struct {
	mu   sync.Mutex
	path string
}

// NewFileAuditer создаёт подписчика, пишущего в path.
func NewFileAuditer(path string) *FileAuditer {
	return &FileAuditer{path: path}
}

// Update читает накопленный журнал, добавляет событие и перезаписывает файл.
// Отсутствующий или пустой файл считается пустым журналом.
func (a *FileAuditer) Update(_ context.Context, event models.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var auditLog models.AuditLog

	fileData, err := os.ReadFile(a.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read audit file %s: %w", a.path, err)
	}

	if len(fileData) > 0 {
		if err := easyjson.Unmarshal(fileData, &auditLog); err != nil {
			return fmt.Errorf("failed to decode audit file %s: %w", a.path, err)
		}
	}

	auditLog.Events = append(auditLog.Events, event)

	jsonData, err := easyjson.Marshal(auditLog)
	if err != nil {
		return fmt.Errorf("failed to encode audit log: %w", err)
	}

	if err := os.WriteFile(a.path, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write audit file %s: %w", a.path, err)
	}

	return nil
}

// URLAuditer отправляет события аудита на внешний HTTP endpoint.
type URLAuditer struct {
	url    string
	client *resty.Client
}

// NewURLAuditer создаёт подписчика, отправляющего события на url методом POST.
func NewURLAuditer(url string) *URLAuditer {
	return &URLAuditer{
		url:    url,
		client: resty.New().SetTimeout(5 * time.Second),
	}
}

func (a *URLAuditer) Update(ctx context.Context, event models.AuditEvent) error {
	jsonData, err := easyjson.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(jsonData).
		Post(a.url)
	if err != nil {
		return fmt.Errorf("audit POST failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("audit endpoint returned status %d", resp.StatusCode())
	}

	return nil
}
