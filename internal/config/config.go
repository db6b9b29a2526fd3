// Package config defines all configuration for the exchange services
// (engine, store, processor, onchain bridge). Config is loaded from a YAML
// file with sensitive fields overridable via EXCH_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration shared by every binary in cmd/.
// Each binary only reads the sections it needs.
type Config struct {
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Store     StoreConfig     `mapstructure:"store"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Onchain   OnchainConfig   `mapstructure:"onchain"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RedisConfig addresses the four pools the pipeline uses: order/event
// intake, engine output fan-out, websocket fan-out, and a shared pool for
// everything else (rate limiting, dedup, locks).
type RedisConfig struct {
	EngineInputAddr  string `mapstructure:"engine_input_addr"`
	EngineOutputAddr string `mapstructure:"engine_output_addr"`
	WebsocketAddr    string `mapstructure:"websocket_addr"`
	CommonAddr       string `mapstructure:"common_addr"`
	DB               int    `mapstructure:"db"`
	Password         string `mapstructure:"password"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// EngineConfig tunes the matching engine: MaxOrderCount is each market
// engine's inbox capacity (intake blocks while it is full) and
// OutputWriterCount is how many output writer goroutines fan out events.
// SnapshotInterval is not read by the engine; its depth tick is fixed at
// one second.
type EngineConfig struct {
	MaxOrderCount     int           `mapstructure:"max_order_count"`
	OutputWriterCount int           `mapstructure:"output_writer_count"`
	SnapshotInterval  time.Duration `mapstructure:"snapshot_interval"`
	ConsumerGroup     string        `mapstructure:"consumer_group"`
	ConsumerName      string        `mapstructure:"consumer_name"`
	ClaimIdleTimeout  time.Duration `mapstructure:"claim_idle_timeout"`
	ReadBatchSize     int64         `mapstructure:"read_batch_size"`
	ReadBlockTimeout  time.Duration `mapstructure:"read_block_timeout"`
}

// StoreConfig controls where and how often order-shadow snapshots are
// persisted. After a successful save the store stream is always trimmed up
// to the last processed message; MessageRetention is not read.
type StoreConfig struct {
	SnapshotDir      string        `mapstructure:"snapshot_dir"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	ConsumerName     string        `mapstructure:"consumer_name"`
	MessageRetention time.Duration `mapstructure:"message_retention"`
}

// ProcessorConfig controls trade-settlement batching: trades are chunked
// into onchain batches of BatchSize before a send request is built.
type ProcessorConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	ConsumerName     string        `mapstructure:"consumer_name"`
	ReadBlockTimeout time.Duration `mapstructure:"read_block_timeout"`
}

// OnchainConfig addresses the bridge this service calls to submit settled
// batches, and the inbound stream the bridge itself consumes (deposits,
// withdrawals, splits, merges, redemptions reported by the chain indexer).
// The bridge's own signing/RPC internals are out of scope.
type OnchainConfig struct {
	RequestStream   string        `mapstructure:"request_stream"`
	ResponseStream  string        `mapstructure:"response_stream"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	ActionStream     string        `mapstructure:"action_stream"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	ConsumerName     string        `mapstructure:"consumer_name"`
	ReadBatchSize    int64         `mapstructure:"read_batch_size"`
	ReadBlockTimeout time.Duration `mapstructure:"read_block_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with EXCH_* environment overrides
// (e.g. EXCH_POSTGRES_DSN overrides postgres.dsn).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.db", 0)
	v.SetDefault("engine.max_order_count", 500_000)
	v.SetDefault("engine.output_writer_count", 8)
	v.SetDefault("engine.snapshot_interval", time.Second)
	v.SetDefault("engine.claim_idle_timeout", 30*time.Second)
	v.SetDefault("engine.read_batch_size", int64(256))
	v.SetDefault("engine.read_block_timeout", 2*time.Second)
	v.SetDefault("store.snapshot_interval", 5*time.Second)
	v.SetDefault("store.message_retention", 10*time.Minute)
	v.SetDefault("processor.batch_size", 50)
	v.SetDefault("processor.read_block_timeout", 2*time.Second)
	v.SetDefault("onchain.response_timeout", 30*time.Second)
	v.SetDefault("onchain.read_batch_size", int64(64))
	v.SetDefault("onchain.read_block_timeout", 2*time.Second)
	v.SetDefault("postgres.max_conns", int32(20))
	v.SetDefault("postgres.min_conns", int32(2))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks fields required for the engine to boot safely.
func (c *Config) Validate() error {
	if c.Redis.EngineInputAddr == "" {
		return fmt.Errorf("redis.engine_input_addr is required")
	}
	if c.Redis.EngineOutputAddr == "" {
		return fmt.Errorf("redis.engine_output_addr is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Engine.MaxOrderCount <= 0 {
		return fmt.Errorf("engine.max_order_count must be > 0")
	}
	if c.Engine.OutputWriterCount <= 0 {
		return fmt.Errorf("engine.output_writer_count must be > 0")
	}
	return nil
}
