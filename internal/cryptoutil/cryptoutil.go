// Package cryptoutil шифрует тела пачек телеметрии между агентом и сервером.
// Используется гибридная схема: случайный ключ AES-256-GCM шифрует данные,
// а сам ключ шифруется открытым ключом RSA (OAEP, SHA-256).
//
// Формат шифротекста: RSA(aesKey) || nonce || AES-GCM(data).
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	rsaKeyBits = 2048
	aesKeySize = 32

	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

// ErrShortCiphertext возвращается, если шифротекст короче обязательных заголовков.
var ErrShortCiphertext = errors.New("ciphertext too short")

// EnsureKeypair создаёт пару ключей private.pem/public.pem в каталоге keyPath,
// если приватного ключа там ещё нет. Пустой путь отключает шифрование.
func EnsureKeypair(keyPath string) error {
	if keyPath == "" {
		return nil
	}

	dir := filepath.Dir(keyPath)
	privatePath := filepath.Join(dir, privateKeyFile)

	if _, err := os.Stat(privatePath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat private key: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	return GenerateKeypair(privatePath, filepath.Join(dir, publicKeyFile))
}

// GenerateKeypair генерирует RSA-ключи и сохраняет приватный ключ в PKCS#1,
// а открытый в PKIX, оба в формате PEM.
func GenerateKeypair(privatePath, publicPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key to %s: %w", privatePath, err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key to %s: %w", publicPath, err)
	}

	return nil
}

// LoadPrivateKey загружает RSA-ключ из PEM-файла (PKCS#1 или PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

// LoadPublicKey загружает открытый RSA-ключ из PEM-файла (PKIX).
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}

// Encrypt шифрует data гибридной схемой.
func Encrypt(publicKey *rsa.PublicKey, data []byte) ([]byte, error) {
	aesKey := make([]byte, aesKeySize)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, fmt.Errorf("failed to generate AES key: %w", err)
	}

	sealed, err := seal(aesKey, data)
	if err != nil {
		return nil, err
	}

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, aesKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt AES key: %w", err)
	}

	return append(wrappedKey, sealed...), nil
}

// Decrypt расшифровывает данные, полученные из Encrypt.
func Decrypt(privateKey *rsa.PrivateKey, data []byte) ([]byte, error) {
	keySize := privateKey.Size()
	if len(data) < keySize {
		return nil, ErrShortCiphertext
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, data[:keySize], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt AES key: %w", err)
	}

	return open(aesKey, data[keySize:])
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, ErrShortCiphertext
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return plaintext, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", path)
	}
	return block, nil
}
