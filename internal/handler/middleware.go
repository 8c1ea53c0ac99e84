package handler

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/levinOo/go-telemetry-project/internal/cryptoutil"
	"github.com/levinOo/go-telemetry-project/internal/models"
)

// MaxBodySize ограничивает размер тела запроса до и после распаковки.
const MaxBodySize = 10 << 20

// ErrHashMismatch возвращается, если подпись HashSHA256 не совпала с телом.
var ErrHashMismatch = errors.New("hash mismatch")

// DecryptMiddleware расшифровывает тело, помеченное заголовком X-Encrypted.
// Если закрытый ключ не задан, запрос передаётся дальше без изменений.
func DecryptMiddleware(privateKey *rsa.PrivateKey) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.Header.Get(models.HeaderEncrypted) == "" {
				h.ServeHTTP(rw, r)
				return
			}

			if privateKey == nil {
				http.Error(rw, "Encryption is not configured", http.StatusBadRequest)
				return
			}

			sealed, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, MaxBodySize))
			if err != nil {
				http.Error(rw, "Failed to read body", readErrorStatus(err))
				return
			}

			body, err := cryptoutil.Decrypt(privateKey, sealed)
			if err != nil {
				http.Error(rw, "Failed to decrypt body", http.StatusBadRequest)
				return
			}

			replaceBody(r, body)
			h.ServeHTTP(rw, r)
		})
	}
}

// DecompressMiddleware распаковывает тело с Content-Encoding: gzip.
func DecompressMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(rw, "Failed to decompress gzip body", http.StatusBadRequest)
				return
			}
			defer gz.Close()

			body, err := io.ReadAll(io.LimitReader(gz, MaxBodySize+1))
			if err != nil {
				http.Error(rw, "Failed to read decompressed body", http.StatusBadRequest)
				return
			}
			if len(body) > MaxBodySize {
				http.Error(rw, "Body too large", http.StatusRequestEntityTooLarge)
				return
			}

			replaceBody(r, body)
			r.Header.Del("Content-Encoding")
		}
		h.ServeHTTP(rw, r)
	})
}

// HashMiddleware проверяет HMAC SHA256 несжатого тела, если задан ключ
// и агент прислал заголовок HashSHA256.
func HashMiddleware(key string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(models.HeaderHash)
			if key == "" || signature == "" {
				h.ServeHTTP(rw, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, MaxBodySize))
			if err != nil {
				http.Error(rw, "Failed to read body", readErrorStatus(err))
				return
			}

			if !cryptoutil.Verify([]byte(key), body, signature) {
				http.Error(rw, ErrHashMismatch.Error(), http.StatusBadRequest)
				return
			}

			replaceBody(r, body)
			h.ServeHTTP(rw, r)
		})
	}
}

// readErrorStatus отличает превышение MaxBodySize (413) от прочих ошибок чтения (400).
func readErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func replaceBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
}
