package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/ianpurifying/SE1project-IRNVault/internal/config"
)

// InitRedis initializes the redis client used for session revocation.
// Returns nil when redis is unreachable; the session middleware degrades
// to JWT-only validation in that case.
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[DB] Redis connection failed, continuing without Redis: %v", err)
		return nil
	}

	log.Println("[DB] Redis connection established")
	return rdb
}
