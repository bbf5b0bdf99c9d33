package refresh

import (
	"strings"
	"time"

	appconfig "github.com/stableview/stableview/internal/config"
)

// Config controls refresh cadence, staleness thresholds and per-call pacing.
type Config struct {
	RunInterval        time.Duration
	JobTimeout         time.Duration
	CallDelay          time.Duration
	PriceStaleAfter    time.Duration
	PegPriceStaleAfter time.Duration
	LockTTL            time.Duration
	SymbolDenylist     []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Hour,
		JobTimeout:         5 * time.Minute,
		CallDelay:          200 * time.Millisecond,
		PriceStaleAfter:    time.Hour,
		PegPriceStaleAfter: 24 * time.Hour,
		LockTTL:            10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.CallDelay < 0 {
		c.CallDelay = defaults.CallDelay
	}
	if c.PriceStaleAfter <= 0 {
		c.PriceStaleAfter = defaults.PriceStaleAfter
	}
	if c.PegPriceStaleAfter <= 0 {
		c.PegPriceStaleAfter = defaults.PegPriceStaleAfter
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func (c Config) denied(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range c.SymbolDenylist {
		if s == symbol {
			return true
		}
	}
	return false
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval:        cfg.RefreshInterval,
		CallDelay:          cfg.RefreshCallDelay,
		PriceStaleAfter:    cfg.PriceStaleAfter,
		PegPriceStaleAfter: cfg.PegPriceStaleAfter,
		SymbolDenylist:     cfg.SymbolDenylist,
	}.withDefaults()
}
