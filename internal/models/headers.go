package models

// Заголовки протокола передачи пачек между агентом и сервером.
const (
	// HeaderHash содержит HMAC SHA256 несжатого JSON-тела в hex.
	HeaderHash = "HashSHA256"

	// HeaderEncrypted помечает тело, зашифрованное открытым ключом сервера.
	HeaderEncrypted = "X-Encrypted"

	// EncryptionScheme описывает гибридную схему RSA-OAEP + AES-GCM.
	EncryptionScheme = "rsa-aes-gcm"
)
