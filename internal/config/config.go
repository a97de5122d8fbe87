// Package config loads tokenctl configuration from defaults, a config file,
// a .env file and TOKENCTL_-prefixed environment variables.
package config

import "time"

// Config is the complete tokenctl configuration.
type Config struct {
	RPC         RPCConfig          `mapstructure:"rpc"`
	Account     string             `mapstructure:"account"`
	Tokens      []TokenConfig      `mapstructure:"tokens"`
	Conversions []ConversionConfig `mapstructure:"conversions"`
	Oracle      OracleConfig       `mapstructure:"oracle"`
	Tracker     TrackerConfig      `mapstructure:"tracker"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
	Log         LogConfig          `mapstructure:"log"`
}

// RPCConfig configures the JSON-RPC client.
type RPCConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// RateLimit in requests per second. 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// TokenConfig configures one ERC-20 token.
type TokenConfig struct {
	Symbol  string `mapstructure:"symbol"`
	Address string `mapstructure:"address"`
	// Decimals is optional; when unset it is read from the contract.
	Decimals *int `mapstructure:"decimals"`
}

// ConversionConfig declares that 1 From equals Rate To.
type ConversionConfig struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Rate string `mapstructure:"rate"`
}

// OracleConfig configures the price feed oracle pair.
type OracleConfig struct {
	Read           string `mapstructure:"read"`
	Write          string `mapstructure:"write"`
	ReferenceToken string `mapstructure:"reference_token"`
}

// Enabled reports whether an oracle pair is configured.
func (o OracleConfig) Enabled() bool {
	return o.Read != "" || o.Write != ""
}

// TrackerConfig configures transaction tracking.
type TrackerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StorageConfig configures the transaction journal.
type StorageConfig struct {
	// PostgresDSN selects the Postgres journal. Empty keeps it in memory.
	PostgresDSN string `mapstructure:"postgres_dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	// Listen address for the /metrics endpoint. Empty disables it.
	Listen string `mapstructure:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}
