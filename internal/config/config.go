// Package config holds the explicit shop configuration passed into every
// store and server constructor. There are no process-wide mutable
// settings: load once in main, hand the struct down.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/tillbook/internal/fs"
)

// Config is the full shop configuration.
type Config struct {
	ShopName       string  `json:"shop_name"`
	CurrencySymbol string  `json:"currency_symbol"`
	TaxRate        float64 `json:"tax_rate"` // flat rate, 0.05 = 5%
	TimeZone       string  `json:"time_zone"`
	DataDir        string  `json:"data_dir"`
	ListenAddr     string  `json:"listen_addr"`
	LockTimeout    string  `json:"lock_timeout"` // Go duration, e.g. "5s"

	AdminUsername string `json:"admin_username"`
	// Bcrypt hash of the admin password. Generate with `tillbook init`.
	AdminPasswordHash string `json:"admin_password_hash"`

	JWTSecret    string `json:"jwt_secret"`
	MetricsToken string `json:"metrics_token,omitempty"`
}

// FileName is the default config file name, looked up in the working
// directory.
const FileName = "tillbook.json"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ShopName:       "Tillbook Grocery",
		CurrencySymbol: "$",
		TaxRate:        0,
		TimeZone:       "Asia/Colombo",
		DataDir:        "data",
		ListenAddr:     ":8037",
		LockTimeout:    "5s",
		AdminUsername:  "admin",
	}
}

var (
	ErrFileNotFound = errors.New("config file not found")
	ErrInvalid      = errors.New("invalid config")
)

// Load reads the config at path, layered over [Default]. The file is
// JSONC: comments and trailing commas are fine. When mustExist is false
// a missing file yields the defaults.
func Load(fsys fs.FS, path string, mustExist bool) (Config, error) {
	cfg := Default()

	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return cfg, nil
		}

		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	fileCfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	cfg = merge(cfg, fileCfg)

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.ShopName != "" {
		base.ShopName = overlay.ShopName
	}

	if overlay.CurrencySymbol != "" {
		base.CurrencySymbol = overlay.CurrencySymbol
	}

	if overlay.TaxRate != 0 {
		base.TaxRate = overlay.TaxRate
	}

	if overlay.TimeZone != "" {
		base.TimeZone = overlay.TimeZone
	}

	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}

	if overlay.ListenAddr != "" {
		base.ListenAddr = overlay.ListenAddr
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.AdminUsername != "" {
		base.AdminUsername = overlay.AdminUsername
	}

	if overlay.AdminPasswordHash != "" {
		base.AdminPasswordHash = overlay.AdminPasswordHash
	}

	if overlay.JWTSecret != "" {
		base.JWTSecret = overlay.JWTSecret
	}

	if overlay.MetricsToken != "" {
		base.MetricsToken = overlay.MetricsToken
	}

	return base
}

// Validate rejects configurations the stores or server cannot run with.
func Validate(cfg Config) error {
	if cfg.DataDir == "" {
		return errors.New("data_dir cannot be empty")
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return fmt.Errorf("tax_rate %v out of range [0, 1)", cfg.TaxRate)
	}

	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return fmt.Errorf("time_zone %q: %w", cfg.TimeZone, err)
	}

	if _, err := time.ParseDuration(cfg.LockTimeout); err != nil {
		return fmt.Errorf("lock_timeout %q: %w", cfg.LockTimeout, err)
	}

	return nil
}

// Location returns the shop time zone. Call only after Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}

	return loc
}

// LockTimeoutDuration returns the parsed lock timeout. Call only after
// Validate.
func (c Config) LockTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 0
	}

	return d
}

// CatalogPath returns the product document path under the data dir.
func (c Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "products.json")
}

// SalesDir returns the directory holding the per-day sales documents.
func (c Config) SalesDir() string {
	return filepath.Join(c.DataDir, "sales")
}

// Save writes cfg to path as formatted JSON via an atomic rename, so a
// crash mid-save never leaves a truncated config behind.
func Save(fsys fs.FS, path string, cfg Config) error {
	data, err := Format(cfg)
	if err != nil {
		return err
	}

	if err := fsys.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}

// Format renders cfg as indented JSON.
func Format(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("formatting config: %w", err)
	}

	return append(data, '\n'), nil
}
