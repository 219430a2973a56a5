package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"

	"github.com/pavanmanishd/vmarena"
	"github.com/pavanmanishd/vmarena/internal/logging"
	"github.com/pavanmanishd/vmarena/thread"
)

// Prefix is prepended to every environment variable name.
const Prefix = "VMARENA"

// Config holds all application configuration.
type Config struct {
	Policy  thread.Policy `envconfig:"POLICY" default:"single-threaded"`
	Verbose bool          `envconfig:"VERBOSE" default:"false"`
	Metrics bool          `envconfig:"METRICS" default:"false"`
	Log     LogConfig
	Arena   ArenaConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// ArenaConfig holds the parameters of worker arenas. A zero InitialSize
// means four granularity steps.
type ArenaConfig struct {
	ReservedSize ByteSize `envconfig:"RESERVED_SIZE" default:"4GiB"`
	Granularity  ByteSize `envconfig:"GRANULARITY" default:"2MiB"`
	InitialSize  ByteSize `envconfig:"INITIAL_SIZE" default:"0"`
	LockPages    bool     `envconfig:"LOCK_PAGES" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Policy: thread.SingleThreaded,
		Log: LogConfig{
			Level: "info",
		},
		Arena: ArenaConfig{
			ReservedSize: ByteSize(vmarena.DefaultReservedSize),
			Granularity:  ByteSize(vmarena.DefaultGranularity),
		},
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Log.Development {
		cfg = logging.DevelopmentConfig()
	}
	if c.Log.Level != "" {
		cfg.Level = c.Log.Level
	}
	return cfg
}

// Creation returns the arena creation parameters.
func (c *Config) Creation() vmarena.Creation {
	return vmarena.Creation{
		ReservedSize: uint64(c.Arena.ReservedSize),
		Granularity:  uint64(c.Arena.Granularity),
		InitialSize:  uint64(c.Arena.InitialSize),
		LockPages:    c.Arena.LockPages,
	}
}

// Usage lists the recognised environment variables.
func Usage() string {
	return fmt.Sprintf("environment variables use the %s_ prefix, e.g. %s_POLICY, %s_ARENA_RESERVED_SIZE", Prefix, Prefix, Prefix)
}

// ByteSize is a byte count written in human form ("4GiB", "512 kB").
type ByteSize uint64

// Decode implements envconfig.Decoder.
func (b *ByteSize) Decode(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// Set implements pflag.Value.
func (b *ByteSize) Set(s string) error { return b.Decode(s) }

// Type implements pflag.Value.
func (b *ByteSize) Type() string { return "bytes" }

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }
