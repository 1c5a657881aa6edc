// Package cache provides the shared storage for the /v1 rate limiter.
// Entitlements are never cached; only limiter counters live here.
package cache

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
)

// LimiterStorage returns a Redis-backed fiber.Storage when CACHE_HOST is
// set, so several gateway instances share one budget. With no cache host it
// returns nil and the limiter keeps its counters in process memory.
func LimiterStorage(cfg config.Cache) fiber.Storage {
	if cfg.Host == "" {
		log.Info().Msg("rate limiter uses in-memory storage")
		return nil
	}
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("rate limiter uses redis storage")
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: 0,
	})
}
