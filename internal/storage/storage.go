// Package storage is the agent's durable local state: a small key-value
// table for credentials and preferences plus the registered web push
// subscriptions. It survives process restarts; everything else in the agent
// is in-memory.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"workb-agent/config"
	"workb-agent/internal/model"
)

// Fixed keys for the persisted key-value state.
const (
	KeyAuthToken   = "auth_token"
	KeyUserInfo    = "user_info"
	KeyWorkspaceID = "workspace_id"
	KeyPushToken   = "push_token"
	KeyPushEnabled = "push_enabled"
)

// ErrNotFound is returned when a key has no persisted value.
var ErrNotFound = errors.New("storage: key not found")

// Storage wraps the local database.
type Storage struct {
	db *gorm.DB
}

// Open initializes the local database and runs migrations.
func Open(cfg *config.StorageConfig) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	log.Println("running local storage migrations...")
	if err := db.AutoMigrate(
		&model.KVEntry{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// DB exposes the underlying handle for collaborators that need richer
// queries (the notification worker's subscription lookups).
func (s *Storage) DB() *gorm.DB {
	return s.db
}

// Get returns the persisted value for key, or ErrNotFound.
func (s *Storage) Get(key string) (string, error) {
	var entry model.KVEntry
	if err := s.db.First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return entry.Value, nil
}

// Set stores or replaces the value for key.
func (s *Storage) Set(key, value string) error {
	entry := model.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes a single key. Deleting an absent key is a no-op.
func (s *Storage) Delete(key string) error {
	if err := s.db.Delete(&model.KVEntry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// MultiRemove deletes several keys in one transaction. Used for credential
// invalidation on logout and on a 401 from the backend.
func (s *Storage) MultiRemove(keys ...string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			if err := tx.Delete(&model.KVEntry{}, "key = ?", key).Error; err != nil {
				return fmt.Errorf("failed to delete key %q: %w", key, err)
			}
		}
		return nil
	})
}

// Token returns the persisted bearer token, or empty when logged out.
func (s *Storage) Token() string {
	token, err := s.Get(KeyAuthToken)
	if err != nil {
		return ""
	}
	return token
}

// User decodes the persisted user object. A missing user returns
// (nil, nil); malformed persisted JSON propagates as an error since there is
// no recovery strategy for corrupted local storage.
func (s *Storage) User() (*model.User, error) {
	raw, err := s.Get(KeyUserInfo)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("corrupted persisted user: %w", err)
	}
	return &user, nil
}

// SetUser persists the serialized user object.
func (s *Storage) SetUser(user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	return s.Set(KeyUserInfo, string(raw))
}

// ClearCredentials drops the token, user, and workspace keys.
func (s *Storage) ClearCredentials() error {
	return s.MultiRemove(KeyAuthToken, KeyUserInfo, KeyWorkspaceID)
}

// Subscriptions returns every registered push subscription.
func (s *Storage) Subscriptions() ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

// SaveSubscription creates or replaces a push subscription by endpoint.
func (s *Storage) SaveSubscription(sub *model.PushSubscription) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription by endpoint.
func (s *Storage) DeleteSubscription(endpoint string) error {
	if err := s.db.Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}
