package models

import "time"

type HistoryStatus string

const (
	StatusSuccess HistoryStatus = "success"
	StatusFailed  HistoryStatus = "failed"
)

// HistoryEntry is one recorded card-creation attempt. The request fields are
// flattened into the entry as a snapshot.
type HistoryEntry struct {
	ID string `json:"id"`
	CardRequest
	CreatedAt time.Time     `json:"createdAt"`
	Status    HistoryStatus `json:"status"`
	CardID    string        `json:"cardId,omitempty"`
	CardURL   string        `json:"cardUrl,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// KVEntry backs the key-value store when it lives in sqlite.
type KVEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}
