// Package cache keeps rendered reports in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"raizes/internal/domain"
	"raizes/internal/infra/logging"
)

const opTimeout = 1 * time.Second

// ReportCache stores finished PDFs by request digest. A nil *ReportCache is a
// disabled cache.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient returns nil when addr is empty.
func NewClient(addr string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}

// New returns nil when rdb is nil.
func New(rdb *redis.Client, ttl time.Duration) *ReportCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// Key digests the engine name and the canonical JSON of req.
func Key(engine string, req domain.ReportRequest) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	// struct field order makes the encoding canonical
	b, _ := json.Marshal(req)
	h.Write(b)
	return "reportcache:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached document. Misses and Redis failures both report false.
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	logging.Info("Report cache hit", "key", key)
	return data, true
}

func (c *ReportCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
