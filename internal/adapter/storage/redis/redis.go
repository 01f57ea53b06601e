package redis

import (
	"context"
	"fmt"

	"trust-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient connects to Redis and pings once so misconfiguration
// surfaces at startup.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("redis connection ready")
	return client, nil
}
