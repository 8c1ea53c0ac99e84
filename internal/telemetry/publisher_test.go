package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

func TestIsClientRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("timeout"), want: false},
		{name: "400", err: &StatusError{Code: http.StatusBadRequest}, want: true},
		{name: "499", err: &StatusError{Code: 499}, want: true},
		{name: "wrapped 422", err: fmt.Errorf("send: %w", &StatusError{Code: http.StatusUnprocessableEntity}), want: true},
		{name: "429 is still client class", err: &StatusError{Code: http.StatusTooManyRequests}, want: true},
		{name: "500", err: &StatusError{Code: http.StatusInternalServerError}, want: false},
		{name: "503 wrapped", err: fmt.Errorf("send: %w", &StatusError{Code: http.StatusServiceUnavailable}), want: false},
		{name: "reject helper", err: Reject(errors.New("bad event")), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientRejection(tt.err))
		})
	}
}

func TestRejectKeepsCause(t *testing.T) {
	cause := errors.New("schema mismatch")
	err := Reject(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "schema mismatch", err.Error())
	assert.NoError(t, Reject(nil))
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "server returned status 502", (&StatusError{Code: 502}).Error())
	assert.Equal(t, "server returned status 400: bad json", (&StatusError{Code: 400, Body: "bad json"}).Error())
}

func TestPublisherFunc(t *testing.T) {
	var got int
	p := PublisherFunc(func(_ context.Context, batch []models.MetricEvent) error {
		got = len(batch)
		return nil
	})

	assert.NoError(t, p.Publish(context.Background(), []models.MetricEvent{models.NewMetricEvent("a")}))
	assert.Equal(t, 1, got)
}
