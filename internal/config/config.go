// Package config loads settings from an optional YAML file, a .env file,
// and ALATA_* environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/alata/internal/store"
)

// Config is the process configuration.
type Config struct {
	Database         Database      `yaml:"database"`
	Legacy           Legacy        `yaml:"legacy"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	LogLevel         string        `yaml:"log_level"`
	Business         Business      `yaml:"business"`
}

// Database selects the database file and SQLite driver.
type Database struct {
	Path string `yaml:"path"`
	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `yaml:"driver"`
}

// Legacy locates the flat key/value store.
type Legacy struct {
	Path string `yaml:"path"`
}

// Business is the identity printed on receipts and seeded into settings on
// first run.
type Business struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{
			Path:   "AlataCraftPOS.db",
			Driver: store.DriverCGO,
		},
		Legacy:           Legacy{Path: "alata-legacy.json"},
		AutosaveInterval: 30 * time.Second,
		LogLevel:         "info",
		Business: Business{
			Name:    "Alata Craft",
			Address: "JL.Kota Tengah No. 33 Gorontalo",
			Phone:   "(021) 123-4567",
		},
	}
}

// Load builds the configuration. path names a YAML file and may be empty;
// a named file must exist. envFile names a dotenv file whose variables are
// added to the environment without overriding ones already set; a missing
// envFile is ignored.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ALATA_DB_PATH":          &cfg.Database.Path,
		"ALATA_DB_DRIVER":        &cfg.Database.Driver,
		"ALATA_LEGACY_PATH":      &cfg.Legacy.Path,
		"ALATA_LOG_LEVEL":        &cfg.LogLevel,
		"ALATA_BUSINESS_NAME":    &cfg.Business.Name,
		"ALATA_BUSINESS_ADDRESS": &cfg.Business.Address,
		"ALATA_BUSINESS_PHONE":   &cfg.Business.Phone,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("ALATA_AUTOSAVE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ALATA_AUTOSAVE_INTERVAL: %w", err)
		}
		cfg.AutosaveInterval = d
	}
	return nil
}

// Validate checks field values.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required")
	}
	switch c.Database.Driver {
	case store.DriverCGO, store.DriverPure:
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q: want %q or %q", c.Database.Driver, store.DriverCGO, store.DriverPure))
	}
	if c.AutosaveInterval < 0 {
		problems = append(problems, "autosave_interval must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
