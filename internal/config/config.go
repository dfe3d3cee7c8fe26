// Package config loads the server's TOML configuration and applies the
// REDISTILL_CONFIG / REDIS_PASSWORD / REDIS_PORT / REDIS_BIND environment
// overrides, matching the reference implementation's five-section layout.
package config

import (
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Server holds [server] section options.
type Server struct {
	Bind                string `toml:"bind"`
	Port                int    `toml:"port"`
	NumShards           int    `toml:"num_shards"`
	BatchSize           int    `toml:"batch_size"`
	BufferSize          int    `toml:"buffer_size"`
	BufferPoolSize      int    `toml:"buffer_pool_size"` // accepted but unused
	MaxConnections      int    `toml:"max_connections"`
	ConnectionTimeout   int    `toml:"connection_timeout"` // reserved
	ConnectionRateLimit int    `toml:"connection_rate_limit"`
	HealthCheckPort     int    `toml:"health_check_port"`
}

// Security holds [security] section options.
type Security struct {
	Password    string `toml:"password"`
	TLSEnabled  bool   `toml:"tls_enabled"`
	TLSCertPath string `toml:"tls_cert_path"`
	TLSKeyPath  string `toml:"tls_key_path"`
}

// Logging holds [logging] section options.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Performance holds [performance] section options.
//
// TCPNoDelay is a *bool during decode so the zero value ("absent from the
// TOML document") is distinguishable from an explicit `false`. This
// preserves the reference implementation's serde quirk: `default_true`
// only applies when the field is missing entirely, and an explicit
// `tcp_nodelay = false` is honored as written.
type Performance struct {
	TCPNoDelay    *bool `toml:"tcp_nodelay"`
	TCPKeepalive  int   `toml:"tcp_keepalive"` // reserved
}

// Memory holds [memory] section options.
type Memory struct {
	MaxMemory          uint64 `toml:"max_memory"`
	EvictionPolicy     string `toml:"eviction_policy"`
	EvictionSampleSize int    `toml:"eviction_sample_size"`
}

// Config is the fully-decoded, defaulted, env-overridden configuration.
type Config struct {
	Server      Server      `toml:"server"`
	Security    Security    `toml:"security"`
	Logging     Logging     `toml:"logging"`
	Performance Performance `toml:"performance"`
	Memory      Memory      `toml:"memory"`
}

// Defaults returns a Config populated with every documented default.
func Defaults() Config {
	nodelay := true
	return Config{
		Server: Server{
			Bind:                "127.0.0.1",
			Port:                6379,
			NumShards:           256,
			BatchSize:           16,
			BufferSize:          16384,
			BufferPoolSize:      1024,
			MaxConnections:      10000,
			ConnectionTimeout:   300,
			ConnectionRateLimit: 0,
			HealthCheckPort:     0,
		},
		Security: Security{},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Performance: Performance{
			TCPNoDelay:   &nodelay,
			TCPKeepalive: 60,
		},
		Memory: Memory{
			MaxMemory:          0,
			EvictionPolicy:     "allkeys-lru",
			EvictionSampleSize: 5,
		},
	}
}

// TCPNoDelayEffective materializes the *bool/default_true quirk into a
// plain bool: nil (field absent from the file) resolves to true.
func (c Config) TCPNoDelayEffective() bool {
	if c.Performance.TCPNoDelay == nil {
		return true
	}
	return *c.Performance.TCPNoDelay
}

// Load reads the config file named by REDISTILL_CONFIG (default
// "redistill.toml") if it exists, falling back to defaults. It then applies
// REDIS_PASSWORD / REDIS_PORT / REDIS_BIND overrides from the environment.
// A missing or unreadable config file is not fatal: the caller should log
// the failure and continue with defaults (spec's "config load failure" is
// non-fatal).
func Load() (Config, error) {
	path := os.Getenv("REDISTILL_CONFIG")
	if path == "" {
		path = "redistill.toml"
	}

	cfg := Defaults()

	if data, err := os.ReadFile(path); err == nil {
		// Decode on top of the documented defaults: TOML sections/fields
		// absent from the file keep their Defaults() value, sections
		// present override field-by-field.
		if decodeErr := toml.Unmarshal(data, &cfg); decodeErr != nil {
			return Defaults(), decodeErr
		}
	} else if !os.IsNotExist(err) {
		return Defaults(), err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if pw, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		cfg.Security.Password = pw
	}
	if portStr, ok := os.LookupEnv("REDIS_PORT"); ok {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}
	if bind, ok := os.LookupEnv("REDIS_BIND"); ok {
		cfg.Server.Bind = bind
	}
}
