package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // a missing .env file is fine, env vars may be set directly

	return env.Parse(cfg)
}

// Config holds the configuration for the matching engine process.
type Config struct {
	// Assets is the tradable asset catalog, e.g. SOLAR,WIND,HYDRO.
	Assets []string `env:"ASSETS" envDefault:"SOLAR,WIND,HYDRO"`
	// Policy selects the matching policy: price_time, fifo or pro_rata.
	Policy string `env:"MATCHING_POLICY" envDefault:"price_time"`

	KafkaConfig      `envPrefix:"KAFKA_"`
	RedisConfig      `envPrefix:"REDIS_"`
	TradeStoreConfig `envPrefix:"TRADESTORE_"`
	SnapshotConfig   `envPrefix:"SNAPSHOT_"`
}

// KafkaConfig holds the configuration for the order intake consumer and
// the trade/order event producer.
type KafkaConfig struct {
	OrderTopic string   `env:"ORDER_TOPIC,required"`
	TradeTopic string   `env:"TRADE_TOPIC,required"`
	GroupID    string   `env:"GROUP_ID" envDefault:"matching-engine"`
	Brokers    []string `env:"BROKER,required"`
}

// RedisConfig holds the configuration for the Redis client used by the
// snapshot store and the notification publisher.
type RedisConfig struct {
	Addrs          string `env:"ADDRESS,required"` // Comma-separated list of Redis addresses
	Password       string `env:"PASSWORD" envDefault:""`
	Username       string `env:"USERNAME" envDefault:""`
	DB             int    `env:"DB" envDefault:"0"`
	DefaultChannel string `env:"DEFAULT_CHANNEL" envDefault:"greeniex.market"`
}

// TradeStoreConfig holds the configuration for the durable order/trade store.
type TradeStoreConfig struct {
	Dir string `env:"DIR" envDefault:"data/tradestore"`
}

// SnapshotConfig holds the book snapshot cadence.
type SnapshotConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"30s"`
	// OffsetDelta is the minimum number of intake messages processed
	// since the last snapshot before a new one is taken.
	OffsetDelta int64 `env:"OFFSET_DELTA" envDefault:"100"`
}
