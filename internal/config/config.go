package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the full boxctl configuration read from config.yml.
// Every field has a default; the file only needs to exist when the operator
// wants to override something.
type Config struct {
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Defaults ResourceConfig `yaml:"defaults"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Power    PowerConfig    `yaml:"power"`
	Proxy    ProxyConfig    `yaml:"proxy"`
}

// RuntimeConfig locates the external virtualization CLI and the naming
// scheme boxctl layers on top of it.
type RuntimeConfig struct {
	Bin        string `yaml:"bin"`
	NamePrefix string `yaml:"name_prefix"`
	MountPoint string `yaml:"mount_point"`
}

type ResourceConfig struct {
	MemoryGB int `yaml:"memory_gb"`
}

// GatewayConfig describes the optional in-instance service boxctl keeps
// healthy. All paths are instance-internal.
type GatewayConfig struct {
	Port      int    `yaml:"port"`
	Binary    string `yaml:"binary"`
	LogPath   string `yaml:"log_path"`
	TokenPath string `yaml:"token_path"`
}

type PowerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	StayAwakeCmd    []string `yaml:"stay_awake_cmd"`
}

type ProxyConfig struct {
	LocalPort int `yaml:"local_port"`
}

// Load reads and parses the config file at path, layering it over defaults.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyDefaults backfills zero-valued fields after unmarshal so a partial
// config file doesn't wipe out defaults.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Runtime.Bin == "" {
		c.Runtime.Bin = d.Runtime.Bin
	}
	if c.Runtime.NamePrefix == "" {
		c.Runtime.NamePrefix = d.Runtime.NamePrefix
	}
	if c.Runtime.MountPoint == "" {
		c.Runtime.MountPoint = d.Runtime.MountPoint
	}
	if c.Defaults.MemoryGB == 0 {
		c.Defaults.MemoryGB = d.Defaults.MemoryGB
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = d.Gateway.Port
	}
	if c.Gateway.Binary == "" {
		c.Gateway.Binary = d.Gateway.Binary
	}
	if c.Gateway.LogPath == "" {
		c.Gateway.LogPath = d.Gateway.LogPath
	}
	if c.Gateway.TokenPath == "" {
		c.Gateway.TokenPath = d.Gateway.TokenPath
	}
	if c.Power.IntervalSeconds == 0 {
		c.Power.IntervalSeconds = d.Power.IntervalSeconds
	}
	if len(c.Power.StayAwakeCmd) == 0 {
		c.Power.StayAwakeCmd = d.Power.StayAwakeCmd
	}
	if c.Proxy.LocalPort == 0 {
		c.Proxy.LocalPort = d.Proxy.LocalPort
	}
}

// Validate checks that all values are in range.
func (c *Config) Validate() error {
	if c.Runtime.Bin == "" {
		return fmt.Errorf("runtime.bin is required")
	}
	if c.Runtime.NamePrefix == "" {
		return fmt.Errorf("runtime.name_prefix is required")
	}
	if strings.ContainsAny(c.Runtime.NamePrefix, " \t") {
		return fmt.Errorf("runtime.name_prefix must not contain whitespace")
	}
	if !strings.HasPrefix(c.Runtime.MountPoint, "/") {
		return fmt.Errorf("runtime.mount_point must be absolute, got %q", c.Runtime.MountPoint)
	}
	if c.Defaults.MemoryGB < 1 {
		return fmt.Errorf("defaults.memory_gb must be at least 1")
	}
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be 1-65535, got %d", c.Gateway.Port)
	}
	if c.Power.IntervalSeconds < 1 {
		return fmt.Errorf("power.interval_seconds must be at least 1")
	}
	if len(c.Power.StayAwakeCmd) == 0 {
		return fmt.Errorf("power.stay_awake_cmd is required")
	}
	if c.Proxy.LocalPort < 1 || c.Proxy.LocalPort > 65535 {
		return fmt.Errorf("proxy.local_port must be 1-65535, got %d", c.Proxy.LocalPort)
	}
	return nil
}
