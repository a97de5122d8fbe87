package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. TOKENCTL_RPC_ENDPOINT for rpc.endpoint.
const EnvPrefix = "TOKENCTL"

// Paths locates the configuration sources. Both are optional.
type Paths struct {
	// Config file (YAML, JSON or TOML by extension).
	Config string
	// Env is a .env file whose variables are exported before environment
	// overrides are read. Variables already set in the environment win.
	Env string
}

// Load loads configuration in priority order:
// 1. Default values
// 2. Configuration file
// 3. .env file
// 4. Environment variables (TOKENCTL_ prefix)
func Load(paths Paths) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if paths.Config != "" {
		v.SetConfigFile(paths.Config)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", paths.Config, err)
		}
	}

	if err := loadEnvFile(paths.Env); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile exports the variables of path. A missing default .env is not
// an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
