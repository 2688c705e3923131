package config

import "time"

// Default returns propd's built-in configuration: a single Unix-domain
// socket, persist namespace on the file-per-key backend under
// /var/lib/propd, volatile namespace enabled on Badger's in-memory mode, and
// the commit interval the
// original build configured at compile time (spec §6, "COMMIT_INTERVAL:
// integer seconds, build-time").
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Sockets: SocketsConfig{
			Path: "/run/propd/propd.sock",
		},
		Namespace: NamespaceConfig{
			VolatileEnabled: true,
			Persist: BackendConfig{
				Kind: "file",
				Path: "/var/lib/propd/persist",
			},
			Volatile: BackendConfig{
				Kind: "badger",
				Path: "", // in-memory
			},
		},
		Bootstrap: BootstrapConfig{
			Sources: "/etc/propd/default.prop",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9600",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
		CommitInterval: 10 * time.Second,
		SocketTimeout:  30 * time.Second,
	}
}
