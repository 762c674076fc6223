package models

import "time"

// SessionCredential is the persisted bearer token for a portal session
type SessionCredential struct {
	SessionID string    `json:"session_id" db:"session_id"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the SessionCredential model
func (SessionCredential) TableName() string {
	return "session_credentials"
}

// NewSessionCredential creates a new SessionCredential instance
func NewSessionCredential(sessionID, token string) *SessionCredential {
	now := time.Now()
	return &SessionCredential{
		SessionID: sessionID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
