// Package ratelimit provides the storage behind the request limiter.
package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"raizes/internal/infra/logging"
)

type RedisConfig struct {
	Addr string
	DB   int
}

// NewStore returns a Redis-backed store, or an in-memory one when Redis is not
// configured or unreachable.
func NewStore(cfg RedisConfig) fiber.Storage {
	if cfg.Addr == "" {
		logging.Info("Using in-memory store for rate limiting")
		return memoryStorage.New()
	}

	var store fiber.Storage
	func() {
		// redis storage panics when the initial ping fails
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
				store = nil
			}
		}()
		store = redisStorage.New(redisStorage.Config{
			Addrs:    []string{cfg.Addr},
			Database: cfg.DB,
		})
		logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	}()

	if store == nil {
		return memoryStorage.New()
	}
	return store
}
