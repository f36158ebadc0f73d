package model

import "time"

// KVEntry is one persisted key-value pair. The table backs the agent's
// durable state: credentials, the serialized user, workspace id, and push
// preferences.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
