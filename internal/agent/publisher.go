package agent

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/levinOo/go-telemetry-project/internal/cryptoutil"
	"github.com/levinOo/go-telemetry-project/internal/models"
	"github.com/levinOo/go-telemetry-project/internal/pool"
	"github.com/levinOo/go-telemetry-project/internal/telemetry"
)

const defaultTimeout = 10 * time.Second

// HTTPPublisher отправляет пачки событий на сервер телеметрии по HTTP.
// Ответ не из диапазона 2xx превращается в *telemetry.StatusError,
// поэтому 4xx классифицируется батчером как отказ, а 5xx как временная ошибка.
type HTTPPublisher struct {
	client    *resty.Client
	url       string
	key       []byte
	publicKey *rsa.PublicKey
	buffers   *pool.Pool[*bytes.Buffer]
}

// PublisherOption настраивает HTTPPublisher.
type PublisherOption func(*HTTPPublisher)

// WithSigningKey включает подпись тела HMAC SHA256.
func WithSigningKey(key string) PublisherOption {
	return func(p *HTTPPublisher) {
		if key != "" {
			p.key = []byte(key)
		}
	}
}

// WithPublicKey включает шифрование тела открытым ключом сервера.
func WithPublicKey(key *rsa.PublicKey) PublisherOption {
	return func(p *HTTPPublisher) {
		p.publicKey = key
	}
}

// WithTimeout задаёт таймаут одного запроса.
func WithTimeout(d time.Duration) PublisherOption {
	return func(p *HTTPPublisher) {
		p.client.SetTimeout(d)
	}
}

// NewHTTPPublisher создаёт публикатор для endpoint вида http://host:port.
func NewHTTPPublisher(endpoint string, opts ...PublisherOption) (*HTTPPublisher, error) {
	target, err := url.JoinPath(endpoint, "updates")
	if err != nil {
		return nil, fmt.Errorf("failed to join URL path: %w", err)
	}

	p := &HTTPPublisher{
		client: resty.New().
			SetTimeout(defaultTimeout).
			SetRetryCount(0),
		url:     target,
		buffers: pool.New(func() *bytes.Buffer { return new(bytes.Buffer) }),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Publish реализует telemetry.Publisher.
func (p *HTTPPublisher) Publish(ctx context.Context, batch []models.MetricEvent) error {
	data, err := json.Marshal(models.EventBatch{Events: batch})
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	body, err := p.compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip")

	if p.key != nil {
		req.SetHeader(models.HeaderHash, cryptoutil.Sign(p.key, data))
	}

	if p.publicKey != nil {
		body, err = cryptoutil.Encrypt(p.publicKey, body)
		if err != nil {
			return fmt.Errorf("failed to encrypt body: %w", err)
		}
		req.SetHeader(models.HeaderEncrypted, models.EncryptionScheme)
	}

	resp, err := req.SetBody(body).Post(p.url)
	if err != nil {
		return fmt.Errorf("failed to send batch request: %w", err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &telemetry.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	return nil
}

func (p *HTTPPublisher) compress(data []byte) ([]byte, error) {
	buf := p.buffers.Get()
	defer p.buffers.Put(buf)

	w := gzip.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
