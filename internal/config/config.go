package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the loaded configuration to the fx graph.
var Module = fx.Provide(Load)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string

	AnalyticsAPIURL string
	AnalyticsAPIKey string
	PriceAPIURL     string
	PriceAPIKey     string
	ExchangeAPIURL  string

	CronSecret string

	RefreshInterval         time.Duration
	PriceStaleAfter         time.Duration
	PegPriceStaleAfter      time.Duration
	PriceMinRequestInterval time.Duration
	PriceCacheTTL           time.Duration
	RateTableCacheTTL       time.Duration
	ProviderTimeout         time.Duration
	RefreshCallDelay        time.Duration
	SymbolDenylist          []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "stableview"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPPort:    getenv("HTTP_PORT", "8080"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "stableview"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		AnalyticsAPIURL: getenv("ANALYTICS_API_URL", "https://api.topledger.xyz"),
		AnalyticsAPIKey: strings.TrimSpace(getenv("ANALYTICS_API_KEY", "")),
		PriceAPIURL:     getenv("PRICE_API_URL", "https://public-api.birdeye.so"),
		PriceAPIKey:     strings.TrimSpace(getenv("PRICE_API_KEY", "")),
		ExchangeAPIURL:  getenv("EXCHANGE_API_URL", "https://api.exchangerate.host"),

		CronSecret: strings.TrimSpace(getenv("CRON_SECRET", "")),

		RefreshInterval:         getenvDuration("REFRESH_INTERVAL", time.Hour),
		PriceStaleAfter:         getenvDuration("PRICE_STALE_AFTER", time.Hour),
		PegPriceStaleAfter:      getenvDuration("PEG_PRICE_STALE_AFTER", 24*time.Hour),
		PriceMinRequestInterval: getenvDuration("PRICE_MIN_REQUEST_INTERVAL", 50*time.Millisecond),
		PriceCacheTTL:           getenvDuration("PRICE_CACHE_TTL", time.Hour),
		RateTableCacheTTL:       getenvDuration("RATE_TABLE_CACHE_TTL", time.Hour),
		ProviderTimeout:         getenvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		RefreshCallDelay:        getenvDuration("REFRESH_CALL_DELAY", 200*time.Millisecond),
		SymbolDenylist:          parseList(getenv("SYMBOL_DENYLIST", "WUSD")),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	return out
}
