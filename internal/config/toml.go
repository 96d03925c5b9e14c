// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Fetch  FetchConfig  `toml:"fetch"`
	Report ReportConfig `toml:"report"`
}

// FetchConfig maps settings of the analytics API client.
type FetchConfig struct {
	Action     *string   `toml:"action"`
	Take       *int      `toml:"take"`
	MaxEvents  *int      `toml:"max-events"`
	MaxRetries *int      `toml:"max-retries"`
	BaseDelay  *Duration `toml:"base-delay"`
	Timeout    *Duration `toml:"timeout"`
	Endpoint   *string   `toml:"endpoint"`
}

// ReportConfig maps settings of the report window and output.
type ReportConfig struct {
	Timezone  *string `toml:"timezone"`
	StartHour *int    `toml:"business-start"`
	EndHour   *int    `toml:"business-end"`
	Days      *int    `toml:"days"`
	Locale    *string `toml:"locale"`
	OutDir    *string `toml:"out-dir"`
}

// Duration decodes TOML strings such as "800ms" or "45s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
