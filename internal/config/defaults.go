package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration. The external runtime defaults
// to the `container` CLI on PATH.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Bin:        "container",
			NamePrefix: "boxctl-",
			MountPoint: "/workspace",
		},
		Defaults: ResourceConfig{
			MemoryGB: 4,
		},
		Gateway: GatewayConfig{
			Port:      7070,
			Binary:    "/usr/local/bin/box-gateway",
			LogPath:   "/var/log/box-gateway.log",
			TokenPath: "/etc/box-gateway/token",
		},
		Power: PowerConfig{
			IntervalSeconds: 5,
			StayAwakeCmd:    []string{"caffeinate", "-dims"},
		},
		Proxy: ProxyConfig{
			LocalPort: 7070,
		},
	}
}

// Dir returns the per-user boxctl directory, creating it if needed. Config,
// preferences, and the history database all live here.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "boxctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the config file location inside Dir.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}
