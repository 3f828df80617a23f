package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// APIKeyStorage persists API keys in BadgerDB. Only SHA-256 hashes of keys
// are ever stored.
type APIKeyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAPIKeyStorage creates a new API key storage service
func NewAPIKeyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.APIKeyStorage {
	return &APIKeyStorage{db: db, logger: logger}
}

// StoreKey inserts or replaces an API key record
func (s *APIKeyStorage) StoreKey(ctx context.Context, key *models.APIKey) error {
	if err := s.db.Store().Upsert(key.ID, key); err != nil {
		return fmt.Errorf("failed to store api key %s: %w", key.ID, err)
	}
	return nil
}

// GetKeyByHash looks up a non-revoked key by its SHA-256 hash. Returns nil
// when no key matches.
func (s *APIKeyStorage) GetKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var keys []*models.APIKey
	if err := s.db.Store().Find(&keys, badgerhold.Where("KeyHash").Eq(hash)); err != nil {
		return nil, fmt.Errorf("failed to look up api key by hash: %w", err)
	}
	for _, k := range keys {
		if !k.Revoked {
			return k, nil
		}
	}
	return nil, nil
}

// GetKeysByUser returns all keys owned by a user
func (s *APIKeyStorage) GetKeysByUser(ctx context.Context, userID string) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	if err := s.db.Store().Find(&keys, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list api keys for user %s: %w", userID, err)
	}
	return keys, nil
}

// TouchKey updates the last-used timestamp of a key
func (s *APIKeyStorage) TouchKey(ctx context.Context, id string) error {
	var key models.APIKey
	if err := s.db.Store().Get(id, &key); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load api key %s: %w", id, err)
	}
	now := time.Now()
	key.LastUsedAt = &now
	if err := s.db.Store().Upsert(key.ID, &key); err != nil {
		return fmt.Errorf("failed to touch api key %s: %w", id, err)
	}
	return nil
}

// RevokeKey marks a key as revoked
func (s *APIKeyStorage) RevokeKey(ctx context.Context, id string) error {
	var key models.APIKey
	if err := s.db.Store().Get(id, &key); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("api key %s not found", id)
		}
		return fmt.Errorf("failed to load api key %s: %w", id, err)
	}
	key.Revoked = true
	if err := s.db.Store().Upsert(key.ID, &key); err != nil {
		return fmt.Errorf("failed to revoke api key %s: %w", id, err)
	}
	return nil
}
