package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

// Publisher отправляет пачку событий во внешний сервис.
// nil означает успешную доставку. Ошибка, для которой IsClientRejection
// возвращает true, означает, что сервис отверг данные и повтор не поможет;
// любая другая ошибка считается временной.
type Publisher interface {
	Publish(ctx context.Context, batch []models.MetricEvent) error
}

// PublisherFunc позволяет использовать обычную функцию как Publisher.
type PublisherFunc func(ctx context.Context, batch []models.MetricEvent) error

// Publish вызывает f(ctx, batch).
func (f PublisherFunc) Publish(ctx context.Context, batch []models.MetricEvent) error {
	return f(ctx, batch)
}

// StatusError описывает ответ сервиса с кодом HTTP-статуса.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// StatusCode возвращает код HTTP-статуса.
func (e *StatusError) StatusCode() int {
	return e.Code
}

type rejectionError struct {
	err error
}

func (e *rejectionError) Error() string { return e.err.Error() }

func (e *rejectionError) Unwrap() error { return e.err }

func (e *rejectionError) StatusCode() int { return http.StatusBadRequest }

// Reject помечает err как отказ на стороне сервиса (аналог ответа 4xx).
// Используется реализациями Publisher, которые не работают поверх HTTP.
func Reject(err error) error {
	if err == nil {
		return nil
	}
	return &rejectionError{err: err}
}

// IsClientRejection сообщает, является ли err отказом класса 4xx.
// Проверяется вся цепочка обёрток: достаточно, чтобы одна из ошибок
// реализовывала StatusCode() int с кодом в диапазоне 400..499.
func IsClientRejection(err error) bool {
	var coder interface{ StatusCode() int }
	if !errors.As(err, &coder) {
		return false
	}
	code := coder.StatusCode()
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
