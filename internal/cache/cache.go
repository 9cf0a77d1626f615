package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"golang.org/x/text/unicode/norm"
)

// Cache defines the byte-level store behind the result cache.
// A zero ttl on Set means the entry never expires at this layer.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ResultKey derives the storage key for a claim and an optional publisher
// filter. Claims differing only in case or surrounding whitespace share a key.
func ResultKey(claim, filter string) string {
	text := norm.NFC.String(strings.ToLower(strings.TrimSpace(claim)))
	if filter == "" {
		filter = "all"
	}
	hash := sha256.Sum256([]byte(text + "|" + strings.ToLower(filter)))
	return "factcheck:v1:" + hex.EncodeToString(hash[:])
}

// New builds the backend selected by configuration
func New(cfg model.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryCache(0, 0), nil
	case "disk":
		return NewDiskCache(cfg.Dir, 0), nil
	case "buntdb":
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return NewBuntCache(filepath.Join(cfg.Dir, "results.db"))
	case "", "layered":
		return NewLayeredCache(NewMemoryCache(0, 0), NewDiskCache(cfg.Dir, 0)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
