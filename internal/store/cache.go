package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ResolveCacheKey identifies a resolve request against a server. Params are
// folded in sorted order so map iteration does not change the key.
func ResolveCacheKey(serverURL, ref string, params map[string]string, metadata bool) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%t\n", serverURL, ref, metadata)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, params[k])
	}
	return ContentHash(b.String())
}

// ContentHash returns the hex-encoded SHA-256 hash of data.
func ContentHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// LoadCachedResolve decodes the cached response for key into out and
// returns its ETag. ok is false on a miss.
func (s *Store) LoadCachedResolve(key string, out interface{}) (etag string, ok bool, err error) {
	var row CachedResolve
	err = s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading cached resolve: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Response), out); err != nil {
		// A row we cannot decode is as good as a miss.
		return "", false, nil
	}
	return row.ETag, true, nil
}

// SaveCachedResolve stores a response under key with its ETag.
func (s *Store) SaveCachedResolve(key, etag string, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encoding cached resolve: %w", err)
	}
	row := CachedResolve{Key: key, ETag: etag, Response: string(data)}
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("saving cached resolve: %w", err)
	}
	return nil
}

// ClearResolveCache drops every cached response.
func (s *Store) ClearResolveCache() error {
	return s.db.Where("1 = 1").Delete(&CachedResolve{}).Error
}
