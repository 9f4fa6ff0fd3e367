package infrastructure

import (
	"context"
	"fmt"
	"time"

	"social-user-service/internal/config"
	redisclient "social-user-service/pkg/redis"

	"go.uber.org/zap"
)

// NewRedisClient connects to Redis. It returns (nil, nil) when Redis is disabled.
func NewRedisClient(cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("Redis disabled, user cache and rate limiting are off")
		return nil, nil
	}

	redisConfig := redisclient.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		Timeout:     time.Duration(cfg.Redis.Timeout) * time.Second,
	}

	rdb, err := redisclient.NewClient(context.Background(), redisConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
