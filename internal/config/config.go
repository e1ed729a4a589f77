// Package config holds the engine configuration: execution budget for
// sandboxed functions, the projection pool sizing and logging knobs.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Sandbox SandboxConfig
	Pool    PoolConfig
	Log     LogConfig
}

type SandboxConfig struct {
	Budget       time.Duration // wall-clock budget per function call
	Fuel         int64         // interpreter step limit per call
	CacheSize    int           // compiled program cache entries
	MaxCallDepth int           // builtin call nesting limit
}

type PoolConfig struct {
	Size              int // goroutines for per-row projections
	ParallelThreshold int // rows below this run sequentially
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Budget:       5 * time.Second,
			Fuel:         50_000_000,
			CacheSize:    128,
			MaxCallDepth: 64,
		},
		Pool: PoolConfig{
			Size:              runtime.NumCPU(),
			ParallelThreshold: 64,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Load reads configuration from a .env file and GRIDBASE_-prefixed
// environment variables over the defaults.
// GRIDBASE_SANDBOX_BUDGET=2s -> sandbox.budget
func Load() (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// .env is optional; parse errors surface on Unmarshal if critical.
		}
	}

	// Viper's AutomaticEnv doesn't work well with Unmarshal if keys aren't
	// known, so iterate env vars and populate viper directly.
	const prefix = "GRIDBASE_"
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]
		if strings.HasPrefix(key, prefix) {
			propKey := strings.TrimPrefix(key, prefix)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			v.Set(propKey, value)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
