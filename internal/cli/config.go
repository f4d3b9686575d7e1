package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds client settings. Precedence: flags, then environment, then
// the TOML file, then defaults.
type Config struct {
	Server   string        `toml:"server"`
	Token    string        `toml:"token"`
	Timeout  time.Duration `toml:"timeout"`
	LogFile  string        `toml:"log_file"`
	LogLevel string        `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Server:   "http://localhost:8080",
		Timeout:  10 * time.Second,
		LogLevel: "warn",
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/todoctl/config.toml or its
// platform equivalent. Empty when no config directory can be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "todoctl", "config.toml")
}

// LoadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("TODO_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("TODO_TOKEN"); v != "" {
		cfg.Token = v
	}
	return cfg, nil
}
