package models

import "time"

// AuditKind enumerates security events written to the audit trail.
type AuditKind string

const (
	AuditLoginSuccess    AuditKind = "LOGIN_SUCCESS"
	AuditLoginFailed     AuditKind = "LOGIN_FAILED"
	AuditAccountLocked   AuditKind = "ACCOUNT_LOCKED"
	AuditPasswordChanged AuditKind = "PASSWORD_CHANGED"
	AuditPasswordReset   AuditKind = "PASSWORD_RESET"
)

// Origin describes where a request came from.
type Origin struct {
	IPAddress string
	UserAgent string
}

// AuditEntry is one immutable security event. Username is a snapshot taken
// when the entry was written.
type AuditEntry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Username  string    `json:"username"`
	Kind      AuditKind `json:"action"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}
