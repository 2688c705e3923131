// Package config loads propd's configuration, grounded on pkg/config's
// viper + mapstructure + validator layering: PROPD_*-prefixed environment
// variables override a YAML config file, which overrides the built-in
// defaults. No command-line flags are bound into the configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is propd's full configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Sockets   SocketsConfig   `mapstructure:"sockets" yaml:"sockets"`
	Namespace NamespaceConfig `mapstructure:"namespace" yaml:"namespace"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// CommitInterval is the deferred-commit timer duration of spec §6
	// (COMMIT_INTERVAL): how long dirty backend state may sit before the
	// reactor forces a commit.
	CommitInterval time.Duration `mapstructure:"commit_interval" validate:"required,gt=0" yaml:"commit_interval"`

	// SocketTimeout bounds every accepted connection's blocking
	// recv/send calls (spec §5).
	SocketTimeout time.Duration `mapstructure:"socket_timeout" yaml:"socket_timeout"`
}

// LoggingConfig controls logger output, mirroring pkg/config's LoggingConfig.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// SocketsConfig names the listening socket(s) the reactor binds. Path is a
// Unix-domain socket path (the "local-domain" family of spec §4.11);
// RemotePath optionally stands in for a second inter-CPU-style socket, left
// empty to bind one socket only.
type SocketsConfig struct {
	Path       string `mapstructure:"path" validate:"required" yaml:"path"`
	RemotePath string `mapstructure:"remote_path" yaml:"remote_path"`
}

// NamespaceConfig selects whether the volatile namespace is enabled and
// which backend (and storage path) each namespace uses.
type NamespaceConfig struct {
	VolatileEnabled bool         `mapstructure:"volatile_enabled" yaml:"volatile_enabled"`
	Persist         BackendConfig `mapstructure:"persist" yaml:"persist"`
	Volatile        BackendConfig `mapstructure:"volatile" yaml:"volatile"`
}

// BackendConfig picks a concrete store.Backend implementation: "file" for
// fileperkey, "badger" for the embedded-KV engine. An empty Path selects
// Badger's in-memory mode (spec §4.4); Path is required for "file" since
// it has no in-memory mode.
type BackendConfig struct {
	Kind string `mapstructure:"kind" validate:"omitempty,oneof=file badger" yaml:"kind"`
	Path string `mapstructure:"path" yaml:"path"`
}

// BootstrapConfig configures the startup loader (C8).
type BootstrapConfig struct {
	// Sources is a semicolon-separated list of key=value source file
	// paths, per spec §4.8/§6.
	Sources string `mapstructure:"sources" yaml:"sources"`
}

// MetricsConfig controls whether Prometheus collectors are registered.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}

// TelemetryConfig controls whether request spans are emitted.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

var validate = validator.New()

// Load reads configuration from PROPD_*-prefixed environment variables,
// configPath (YAML), and built-in defaults, in that order of decreasing
// precedence, then validates the result. An empty configPath reads no file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	applyDefaultsToViper(v)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if !os.IsNotExist(err) {
					return nil, fmt.Errorf("config: read %s: %w", configPath, err)
				}
			}
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PROPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

func applyDefaultsToViper(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("sockets.path", d.Sockets.Path)
	v.SetDefault("sockets.remote_path", d.Sockets.RemotePath)
	v.SetDefault("namespace.volatile_enabled", d.Namespace.VolatileEnabled)
	v.SetDefault("namespace.persist.kind", d.Namespace.Persist.Kind)
	v.SetDefault("namespace.persist.path", d.Namespace.Persist.Path)
	v.SetDefault("namespace.volatile.kind", d.Namespace.Volatile.Kind)
	v.SetDefault("namespace.volatile.path", d.Namespace.Volatile.Path)
	v.SetDefault("bootstrap.sources", d.Bootstrap.Sources)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("commit_interval", d.CommitInterval)
	v.SetDefault("socket_timeout", d.SocketTimeout)
}
