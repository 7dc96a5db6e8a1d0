package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds CLI configuration from config.toml.
type Config struct {
	Broker    string            `toml:"broker"`
	Identity  string            `toml:"identity"`
	TopicBase string            `toml:"topic_base"`
	Aliases   map[string]string `toml:"aliases"`
	Defaults  Defaults          `toml:"defaults"`
	TLS       TLS               `toml:"tls"`
	Auth      Auth              `toml:"auth"`
}

// Defaults defines default selector values.
type Defaults struct {
	Host string `toml:"host"`
}

// TLS holds broker TLS paths.
type TLS struct {
	CA   string `toml:"ca"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

// Auth holds broker credentials.
type Auth struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// Load loads config.toml if present. Missing file returns an empty config.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile loads the config at path. Missing file returns an empty config.
func LoadFile(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{Aliases: map[string]string{}}, nil
		}
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{}
	}
	return cfg, nil
}

// Path returns the CLI config location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lumen", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lumen", "config.toml"), nil
}
