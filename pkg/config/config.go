// Package config loads engine configuration from a YAML file (default
// config.yaml) with sensitive fields overridable via XVENUE_* environment
// variables, via a viper-based loader. cmd/run.go calls godotenv.Load
// before Load runs, to populate those environment variables from a local
// .env file during development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/spf13/viper"
)

// Config is the top-level engine configuration. Maps directly onto the
// YAML file structure.
type Config struct {
	HTTPPort string     `mapstructure:"http_port"`
	LogLevel string     `mapstructure:"log_level"`
	Mode     types.Mode `mapstructure:"mode"`

	Stream StreamConfig `mapstructure:"stream"`
	RPC    RPCConfig    `mapstructure:"rpc"`
	Fees   FeeConfig    `mapstructure:"fees"`

	SymbolMappingPath   string `mapstructure:"symbol_mapping_path"`
	ExecutionConfigPath string `mapstructure:"execution_config_path"`

	InitialBalanceStream string `mapstructure:"initial_balance_stream"`
	InitialBalanceRPC    string `mapstructure:"initial_balance_rpc"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Execution      ExecutionRuntime     `mapstructure:"execution"`
}

// ExecutionRuntime tunes internal/execution.Executor's polling and hedge
// behavior. Separate from types.ExecutionConfig, which carries the Gate's
// sizing policy and is loaded once at startup from ExecutionConfigPath.
type ExecutionRuntime struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LegTimeout   time.Duration `mapstructure:"leg_timeout"`
	HedgePrice   string        `mapstructure:"hedge_price"`
	HedgeTimeout time.Duration `mapstructure:"hedge_timeout"`
}

// StreamConfig configures the V-Stream gateway (internal/gateway/vstream).
type StreamConfig struct {
	WSURL                 string        `mapstructure:"ws_url"`
	RESTBaseURL           string        `mapstructure:"rest_base_url"`
	APIKey                string        `mapstructure:"api_key"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	PongTimeout           time.Duration `mapstructure:"pong_timeout"`
	PingInterval          time.Duration `mapstructure:"ping_interval"`
	ReconnectInitialDelay time.Duration `mapstructure:"reconnect_initial_delay"`
	ReconnectMaxDelay     time.Duration `mapstructure:"reconnect_max_delay"`
	ReconnectBackoffMult  float64       `mapstructure:"reconnect_backoff_mult"`
	EventBufferSize       int           `mapstructure:"event_buffer_size"`
}

// RPCConfig configures the V-RPC gateway (internal/gateway/vrpc).
type RPCConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RequestsPerSec  float64       `mapstructure:"requests_per_sec"`
	Burst           int           `mapstructure:"burst"`
	EventBufferSize int           `mapstructure:"event_buffer_size"`
}

// FeeConfig feeds internal/arbitrage.Config and internal/sizing.Config,
// which both need the same rate schedule so a resized opportunity's net
// profit is computed consistently with the one the detector first saw.
// Decimal strings, parsed by the caller with shopspring/decimal rather
// than here, so config never holds a float on a money path.
type FeeConfig struct {
	StreamRate        string `mapstructure:"stream_rate"`
	RPCPerContractFee string `mapstructure:"rpc_per_contract_fee"`
	SlippageBuffer    string `mapstructure:"slippage_buffer"`
	MinProfit         string `mapstructure:"min_profit"`
}

// CircuitBreakerConfig maps directly onto circuitbreaker.Config.
type CircuitBreakerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	TradeMultiplier float64       `mapstructure:"trade_multiplier"`
	MinAbsolute     float64       `mapstructure:"min_absolute"`
	HysteresisRatio float64       `mapstructure:"hysteresis_ratio"`
}

// StorageConfig selects the persistence sink (internal/storage).
type StorageConfig struct {
	Mode     string         `mapstructure:"mode"` // "console" or "postgres"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig maps directly onto storage.PostgresConfig.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Load reads config from a YAML file at path, with sensitive fields
// overridable by XVENUE_STREAM_API_KEY, XVENUE_RPC_API_KEY and
// XVENUE_STORAGE_POSTGRES_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("XVENUE")
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

	if key := os.Getenv("XVENUE_STREAM_API_KEY"); key != "" {
		cfg.Stream.APIKey = key
	}
	if key := os.Getenv("XVENUE_RPC_API_KEY"); key != "" {
		cfg.RPC.APIKey = key
	}
	if pass := os.Getenv("XVENUE_STORAGE_POSTGRES_PASSWORD"); pass != "" {
		cfg.Storage.Postgres.Password = pass
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("mode", string(types.ModeDry))
	v.SetDefault("stream.dial_timeout", 10*time.Second)
	v.SetDefault("stream.pong_timeout", 30*time.Second)
	v.SetDefault("stream.ping_interval", 15*time.Second)
	v.SetDefault("stream.reconnect_initial_delay", time.Second)
	v.SetDefault("stream.reconnect_max_delay", 30*time.Second)
	v.SetDefault("stream.reconnect_backoff_mult", 2.0)
	v.SetDefault("stream.event_buffer_size", 256)
	v.SetDefault("rpc.poll_interval", 2*time.Second)
	v.SetDefault("rpc.requests_per_sec", 5.0)
	v.SetDefault("rpc.burst", 10)
	v.SetDefault("rpc.event_buffer_size", 256)
	v.SetDefault("circuit_breaker.check_interval", 30*time.Second)
	v.SetDefault("circuit_breaker.hysteresis_ratio", 1.5)
	v.SetDefault("storage.mode", "console")
	v.SetDefault("storage.postgres.ssl_mode", "disable")
	v.SetDefault("execution.poll_interval", 250*time.Millisecond)
	v.SetDefault("execution.leg_timeout", 5*time.Second)
	v.SetDefault("execution.hedge_price", "0.99")
	v.SetDefault("execution.hedge_timeout", 5*time.Second)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http_port cannot be empty")
	}
	if c.Mode != types.ModeDry && c.Mode != types.ModeLive {
		return fmt.Errorf("mode must be %q or %q, got %q", types.ModeDry, types.ModeLive, c.Mode)
	}
	if c.Stream.WSURL == "" {
		return fmt.Errorf("stream.ws_url cannot be empty")
	}
	if c.RPC.BaseURL == "" {
		return fmt.Errorf("rpc.base_url cannot be empty")
	}
	if c.SymbolMappingPath == "" {
		return fmt.Errorf("symbol_mapping_path cannot be empty")
	}
	if c.ExecutionConfigPath == "" {
		return fmt.Errorf("execution_config_path cannot be empty")
	}
	if c.InitialBalanceStream == "" || c.InitialBalanceRPC == "" {
		return fmt.Errorf("initial_balance_stream and initial_balance_rpc are required")
	}
	if c.Fees.StreamRate == "" || c.Fees.RPCPerContractFee == "" {
		return fmt.Errorf("fees.stream_rate and fees.rpc_per_contract_fee are required")
	}
	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.TradeMultiplier <= 0 {
			return fmt.Errorf("circuit_breaker.trade_multiplier must be positive when enabled, got %f", c.CircuitBreaker.TradeMultiplier)
		}
		if c.CircuitBreaker.HysteresisRatio <= 1 {
			return fmt.Errorf("circuit_breaker.hysteresis_ratio must be greater than 1 when enabled, got %f", c.CircuitBreaker.HysteresisRatio)
		}
		if c.CircuitBreaker.CheckInterval <= 0 {
			return fmt.Errorf("circuit_breaker.check_interval must be positive when enabled, got %s", c.CircuitBreaker.CheckInterval)
		}
	}

	switch c.Storage.Mode {
	case "console":
	case "postgres":
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.host and storage.postgres.database are required when storage.mode is postgres")
		}
	default:
		return fmt.Errorf("storage.mode must be %q or %q, got %q", "console", "postgres", c.Storage.Mode)
	}

	return nil
}
