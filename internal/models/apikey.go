// -----------------------------------------------------------------------
// API Key - only the SHA-256 hash of a key is ever persisted
// -----------------------------------------------------------------------

package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// APIKeyPrefix is the prefix all plaintext keys carry
const APIKeyPrefix = "wp_"

// APIKey is the persisted record for one issued key. The plaintext is shown
// once at creation and never stored.
type APIKey struct {
	ID         string     `json:"id" badgerhold:"key"`
	UserID     string     `json:"userId" badgerhold:"index"`
	KeyHash    string     `json:"keyHash" badgerhold:"index"` // sha256(plaintext), hex
	KeyPrefix  string     `json:"keyPrefix"`                  // first 10 chars for display
	Name       string     `json:"name,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	Revoked    bool       `json:"revoked"`
}

// HashAPIKey returns the hex SHA-256 digest of a plaintext key
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey returns a new plaintext key and its display prefix
func GenerateAPIKey() (plaintext, prefix string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = APIKeyPrefix + hex.EncodeToString(buf)
	prefix = plaintext[:10]
	return plaintext, prefix, nil
}
