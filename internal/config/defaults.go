package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers every scalar key so environment variables can
// override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.endpoint", "http://localhost:8545")
	v.SetDefault("rpc.timeout", 30*time.Second)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("rpc.rate_limit", 0)

	v.SetDefault("account", "")

	v.SetDefault("oracle.read", "")
	v.SetDefault("oracle.write", "")
	v.SetDefault("oracle.reference_token", "WETH")

	v.SetDefault("tracker.poll_interval", 2*time.Second)
	v.SetDefault("tracker.timeout", 5*time.Minute)

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.max_conns", 4)

	v.SetDefault("metrics.namespace", "token_oracle_kit")
	v.SetDefault("metrics.listen", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
