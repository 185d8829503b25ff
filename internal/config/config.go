// Package config loads the TOML configuration file.
//
// A missing file is not an error: every key has a default. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/roach88/taskcoin/internal/appdate"
	"github.com/roach88/taskcoin/internal/shop"
	"github.com/roach88/taskcoin/internal/store"
)

// AppName names the config and data directories.
const AppName = "taskcoin"

// Duration is a time.Duration written as a Go duration string ("1m30s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the effective configuration.
type Config struct {
	// Timezone is an IANA zone name. Empty means the system zone.
	Timezone string `toml:"timezone"`

	// Holidays are sale days: "YYYY-MM-DD" once, or "MM-DD" every year.
	Holidays []string `toml:"holidays"`

	Store StoreConfig `toml:"store"`

	// TickInterval is how often the watch loop runs the expiration sweep.
	TickInterval Duration `toml:"tick_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Backend      string   `toml:"backend"`
	Path         string   `toml:"path"`
	Backups      int      `toml:"backups"`
	PollInterval Duration `toml:"poll_interval"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Holidays: []string{},
		Store: StoreConfig{
			Backend:      string(store.BackendSQLite),
			Backups:      store.DefaultBackups,
			PollInterval: Duration{store.DefaultPollInterval},
		},
		TickInterval: Duration{time.Minute},
		LogLevel:     "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/taskcoin/config.toml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), AppName, "config.toml")
}

// DefaultStorePath returns the data file for backend under
// $XDG_DATA_HOME/taskcoin, falling back to ~/.local/share.
func DefaultStorePath(backend string) string {
	name := "taskcoin.db"
	if backend == string(store.BackendFile) {
		name = "taskcoin.json"
	}
	return filepath.Join(baseDir("XDG_DATA_HOME", filepath.Join(".local", "share")), AppName, name)
}

func baseDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// Load reads path over the defaults. A missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg.withDerived(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.decode(string(data)); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.withDerived(), nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	if err := cfg.decode(text); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.withDerived(), nil
}

func (c *Config) decode(text string) error {
	md, err := toml.Decode(text, c)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// withDerived fills values that depend on other keys.
func (c Config) withDerived() Config {
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath(c.Store.Backend)
	}
	return c
}

// Validate rejects unknown backends, unparsable holidays, unknown time
// zones and log levels, and negative durations.
func (c Config) Validate() error {
	var errs []error
	switch store.Backend(c.Store.Backend) {
	case store.BackendSQLite, store.BackendFile:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backups < 0 {
		errs = append(errs, fmt.Errorf("store.backups: must not be negative"))
	}
	if c.Store.PollInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("store.poll_interval: must not be negative"))
	}
	if c.TickInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("tick_interval: must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if _, err := c.SaleHolidays(); err != nil {
		errs = append(errs, fmt.Errorf("holidays: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the configured zone, or time.Local when unset.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Resolver returns the day boundary resolver for the configured zone.
func (c Config) Resolver() (appdate.Resolver, error) {
	loc, err := c.Location()
	if err != nil {
		return appdate.Resolver{}, err
	}
	return appdate.NewResolver(loc), nil
}

// SaleHolidays parses the holiday list.
func (c Config) SaleHolidays() ([]shop.Holiday, error) {
	out := make([]shop.Holiday, 0, len(c.Holidays))
	for _, s := range c.Holidays {
		h, err := shop.ParseHoliday(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// ParseLevel maps a log_level value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
