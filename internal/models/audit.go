package models

//go:generate easyjson audit.go

// AuditEvent представляет событие аудита о принятой пачке телеметрии.
//
//easyjson:json
type AuditEvent struct {
	// TS содержит временную метку события в формате Unix timestamp.
	TS int64 `json:"ts"`

	// EventNames содержит имена событий, пришедших в пачке.
	EventNames []string `json:"events"`

	// BatchSize содержит количество событий в пачке.
	BatchSize int `json:"batch_size"`

	// IP содержит IP-адрес агента, отправившего пачку.
	IP string `json:"ip_address"`
}

// AuditLog содержит накопленные события аудита в файле.
//
//easyjson:json
type AuditLog struct {
	Events []AuditEvent `json:"events"`
}
