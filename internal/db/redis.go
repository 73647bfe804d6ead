package db

import (
	"github.com/redis/go-redis/v9"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/config"
)

// ConnectRedis builds the client backing cross-instance event fan-out.
// Returns nil when no address is configured; the stream hub then runs
// in-process only.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
