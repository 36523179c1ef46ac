package models

import (
	"encoding/json"
	"time"
)

// CloudRow mirrors one device's LocalProgressSnapshot. One row per user, last write wins.
type CloudRow struct {
	UserID     string          `json:"-"`
	Data       json.RawMessage `json:"data"`
	SessionID  *string         `json:"session_id"`
	LastSynced time.Time       `json:"last_synced"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PushSubscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
