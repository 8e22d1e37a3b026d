package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Transport     TransportConfig `mapstructure:"transport" yaml:"transport"`
	SSH           SSHConfig       `mapstructure:"ssh" yaml:"ssh"`
	HTTP          HTTPConfig      `mapstructure:"http" yaml:"http"`
	Display       DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Transport kinds.
const (
	TransportGRPC = "grpc"
	TransportJSON = "json"
)

// TransportConfig selects how the core reaches the front-end host.
type TransportConfig struct {
	Kind                  string `mapstructure:"kind" yaml:"kind"`
	Network               string `mapstructure:"network" yaml:"network"`
	Address               string `mapstructure:"address" yaml:"address"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// SSHConfig configures the SSH viewer. An empty Addr disables it.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
}

// HTTPConfig configures the read-only inspection API. An empty Addr disables it.
type HTTPConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	BasePath    string `mapstructure:"base_path" yaml:"base_path"`
	HistorySize int    `mapstructure:"history_size" yaml:"history_size"`
}

// DisplayConfig controls the in-process display.
type DisplayConfig struct {
	MaxViews int `mapstructure:"max_views" yaml:"max_views"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Transport: TransportConfig{
			Kind:                  TransportGRPC,
			Network:               "unix",
			Address:               filepath.Join(home, ".frontline", "state", "frontend.sock"),
			RequestTimeoutSeconds: 10,
		},
		SSH: SSHConfig{
			Addr:               "",
			HostKeyPath:        filepath.Join(home, ".frontline", "ssh_host_key"),
			AuthorizedKeysPath: filepath.Join(home, ".ssh", "authorized_keys"),
		},
		HTTP: HTTPConfig{
			HistorySize: 1000,
		},
		Display: DisplayConfig{
			MaxViews: 64,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".frontline", "config.yaml"), nil
}
