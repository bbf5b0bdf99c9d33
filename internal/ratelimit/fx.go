package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(ProvideIntervalGate),
	fx.Provide(ProvideRedis),
	fx.Provide(NewRunLocker),
)

func ProvideIntervalGate(cfg config.Config, clk clock.Clock) *IntervalGate {
	return NewIntervalGate(clk, cfg.PriceMinRequestInterval)
}

// ProvideRedis returns nil when no REDIS_ADDR is configured; the run locker
// degrades to a no-op in that case.
func ProvideRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
