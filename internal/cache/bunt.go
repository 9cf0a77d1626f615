package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

// BuntCache stores entries in an embedded buntdb file
type BuntCache struct {
	db *buntdb.DB
}

// NewBuntCache opens (or creates) the database at path. Use ":memory:" for
// a non-durable store.
func NewBuntCache(path string) (*BuntCache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb %s: %w", path, err)
	}
	return &BuntCache{db: db}, nil
}

// Get retrieves a value
func (c *BuntCache) Get(key string) ([]byte, bool) {
	var val string
	err := c.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if err != nil {
		return nil, false
	}
	return []byte(val), true
}

// Set stores a value; a positive ttl lets buntdb expire it as well
func (c *BuntCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if ttl > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: ttl}
		}
		_, _, err := tx.Set(key, string(value), opts)
		return err
	})
}

// Delete removes a value
func (c *BuntCache) Delete(key string) error {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

// Clear removes every value
func (c *BuntCache) Clear() error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
}

// Close releases the database file
func (c *BuntCache) Close() error {
	return c.db.Close()
}
