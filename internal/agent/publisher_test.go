package agent

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levinOo/go-telemetry-project/internal/cryptoutil"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/telemetry"
)

func sampleBatch() []models.MetricEvent {
	return []models.MetricEvent{
		models.NewMetricEvent("runtime_Alloc", models.WithValue(42, models.UnitBytes)),
		models.NewMetricEvent("agent_PollCount", models.WithValue(1, models.UnitCount)),
	}
}

func decodeBody(t *testing.T, body io.Reader) ([]byte, models.EventBatch) {
	t.Helper()
	zr, err := gzip.NewReader(body)
	require.NoError(t, err)
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var batch models.EventBatch
	require.NoError(t, json.Unmarshal(raw, &batch))
	return raw, batch
}

func TestHTTPPublisherSendsGzipBatch(t *testing.T) {
	var got models.EventBatch
	var hash string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/updates", r.URL.Path)
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		raw, batch := decodeBody(t, r.Body)
		got = batch
		hash = r.Header.Get(models.HeaderHash)
		assert.True(t, cryptoutil.Verify([]byte("secret"), raw, hash))

		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p, err := NewHTTPPublisher(ts.URL, WithSigningKey("secret"))
	require.NoError(t, err)

	batch := sampleBatch()
	require.NoError(t, p.Publish(context.Background(), batch))

	require.Len(t, got.Events, 2)
	assert.Equal(t, batch[0].ID, got.Events[0].ID)
	assert.Equal(t, "agent_PollCount", got.Events[1].Name)
	assert.NotEmpty(t, hash)
}

func TestHTTPPublisherWithoutKeyOmitsHash(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(models.HeaderHash))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p, err := NewHTTPPublisher(ts.URL)
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), sampleBatch()))
}

func TestHTTPPublisherClassifiesStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		rejection bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "accepted", status: http.StatusAccepted},
		{name: "bad request", status: http.StatusBadRequest, wantErr: true, rejection: true},
		{name: "payload too large", status: http.StatusRequestEntityTooLarge, wantErr: true, rejection: true},
		{name: "internal error", status: http.StatusInternalServerError, wantErr: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			p, err := NewHTTPPublisher(ts.URL)
			require.NoError(t, err)

			err = p.Publish(context.Background(), sampleBatch())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.rejection, telemetry.IsClientRejection(err))

			var statusErr *telemetry.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.Code)
		})
	}
}

func TestHTTPPublisherConnectionRefusedIsTransient(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	p, err := NewHTTPPublisher("http://" + addr)
	require.NoError(t, err)

	err = p.Publish(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.False(t, telemetry.IsClientRejection(err))
}

func TestHTTPPublisherEncryptsBody(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, cryptoutil.EnsureKeypair(filepath.Join(dir, "private.pem")))
	privateKey, err := cryptoutil.LoadPrivateKey(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	publicKey, err := cryptoutil.LoadPublicKey(filepath.Join(dir, "public.pem"))
	require.NoError(t, err)

	var got models.EventBatch
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, models.EncryptionScheme, r.Header.Get(models.HeaderEncrypted))

		sealed, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		plain, err := cryptoutil.Decrypt(privateKey, sealed)
		require.NoError(t, err)

		zr, err := gzip.NewReader(bytes.NewReader(plain))
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(zr).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p, err := NewHTTPPublisher(ts.URL, WithPublicKey(publicKey))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), sampleBatch()))
	assert.Len(t, got.Events, 2)
}
