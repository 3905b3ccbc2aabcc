package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every runtime knob; values come from the environment with
// the defaults below. main loads .env files before Process runs.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	DeribitBaseURL string `envconfig:"DERIBIT_BASE_URL" default:"https://www.deribit.com"`
	BinanceBaseURL string `envconfig:"BINANCE_FUTURES_BASE_URL" default:"https://fapi.binance.com"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"12s"`

	CacheTTLChain     time.Duration `envconfig:"CACHE_TTL_CHAIN" default:"5m"`
	CacheTTLSentiment time.Duration `envconfig:"CACHE_TTL_SENTIMENT" default:"60s"`
	CacheTTLFunding   time.Duration `envconfig:"CACHE_TTL_FUNDING" default:"2m"`
	CacheTTLDvol      time.Duration `envconfig:"CACHE_TTL_DVOL" default:"10m"`
	CacheTTLOrderBook time.Duration `envconfig:"CACHE_TTL_ORDERBOOK" default:"10s"`

	// OIHistoryRetention bounds the rolling open-interest observation log
	// used for the 4h delta; anything older is pruned.
	OIHistoryRetention time.Duration `envconfig:"OI_HISTORY_RETENTION" default:"6h"`

	RateLimitPerMin    int `envconfig:"RATE_LIMIT_PER_MIN" default:"120"`
	UpstreamRatePerMin int `envconfig:"UPSTREAM_RATE_PER_MIN" default:"120"`

	CircuitFailLimit int           `envconfig:"CIRCUIT_FAIL_LIMIT" default:"3"`
	CircuitCooldown  time.Duration `envconfig:"CIRCUIT_COOLDOWN" default:"20s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
