package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/requirements-evaluator/configs"
)

const pingTimeout = 5 * time.Second

// Options translates the configuration into client options. A REDIS_URL wins over the
// discrete host settings; pool and timeout settings apply either way.
func Options(cfg *config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout
	opts.IdleTimeout = cfg.IdleTimeout
	return opts, nil
}

// NewRedisClient builds the usage store client and pings it. A failed ping is only
// logged; the client reconnects on its next command. Only an invalid configuration
// is an error.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		if logger != nil {
			logger.WithError(err).WithField("addr", opts.Addr).Warn("Redis unreachable at startup; rate limiting fails open until it recovers")
		}
		return client, nil
	}
	if logger != nil {
		logger.WithField("addr", opts.Addr).Info("Connected to Redis successfully")
	}
	return client, nil
}
