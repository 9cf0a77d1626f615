package cache

import (
	"time"

	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

// DefaultResultTTL is how long fact-check lookups stay valid
const DefaultResultTTL = 168 * time.Hour

// ResultCache stores raw fact-check search results per claim. Expiry is
// checked only when an entry is read: a stale entry is deleted and reported
// as a miss. Storage failures never reach the caller.
type ResultCache struct {
	store Cache
	ttl   time.Duration
	now   func() time.Time
	log   logrus.FieldLogger
}

// Option configures a ResultCache
type Option func(*ResultCache)

// WithClock overrides the time source used for timestamps and expiry
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// WithLogger sets the logger used for degraded reads and writes
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *ResultCache) { c.log = log }
}

// NewResultCache wraps a byte store. A non-positive ttl uses DefaultResultTTL.
func NewResultCache(store Cache, ttl time.Duration, opts ...Option) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	c := &ResultCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resultRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Claim     string            `json:"claim"`
	Filter    string            `json:"filter,omitempty"`
	Results   []model.FactCheck `json:"results"`
}

// Get returns the cached results for a claim, or false when absent, expired or unreadable
func (c *ResultCache) Get(claim, filter string) ([]model.FactCheck, bool) {
	key := ResultKey(claim, filter)

	data, found := c.store.Get(key)
	if !found {
		return nil, false
	}

	var rec resultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("Evicting unreadable cache entry")
		c.evict(key)
		return nil, false
	}

	if c.now().Sub(rec.Timestamp) > c.ttl {
		c.log.WithField("claim", abbreviate(claim)).Debug("Cache entry expired")
		c.evict(key)
		return nil, false
	}

	if rec.Results == nil {
		rec.Results = []model.FactCheck{}
	}

	c.log.WithField("claim", abbreviate(claim)).Debug("Cache hit")
	return rec.Results, true
}

// Set stores the results for a claim. Write failures are logged and dropped.
func (c *ResultCache) Set(claim, filter string, results []model.FactCheck) {
	key := ResultKey(claim, filter)

	if results == nil {
		results = []model.FactCheck{}
	}
	data, err := json.Marshal(resultRecord{
		Timestamp: c.now(),
		Claim:     claim,
		Filter:    filter,
		Results:   results,
	})
	if err != nil {
		c.log.WithError(err).Warn("Failed to encode cache entry")
		return
	}

	if err := c.store.Set(key, data, 0); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to write cache entry")
		return
	}

	c.log.WithField("claim", abbreviate(claim)).WithField("results", len(results)).Debug("Cached fact-check results")
}

// Clear removes every cached entry
func (c *ResultCache) Clear() error {
	return c.store.Clear()
}

// TTL returns the configured time-to-live
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

func (c *ResultCache) evict(key string) {
	if err := c.store.Delete(key); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("Failed to evict cache entry")
	}
}

func abbreviate(s string) string {
	r := []rune(s)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}
