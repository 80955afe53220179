package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/tillbook/internal/fs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func Test_Load_Returns_Defaults_When_Optional_File_Is_Missing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(fs.NewReal(), filepath.Join(t.TempDir(), FileName), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != "data" || cfg.TaxRate != 0 || cfg.AdminUsername != "admin" {
		t.Fatalf("Load defaults = %+v", cfg)
	}
}

func Test_Load_Fails_When_Required_File_Is_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(fs.NewReal(), filepath.Join(t.TempDir(), FileName), true)
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Load: err = %v, want %v", err, ErrFileNotFound)
	}
}

func Test_Load_Layers_File_Values_Over_Defaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		// Comments are allowed, this is JSONC.
		"shop_name": "Chathura's Grocery",
		"tax_rate": 0.05,
		"data_dir": "/var/lib/tillbook",
	}`)

	cfg, err := Load(fs.NewReal(), path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShopName != "Chathura's Grocery" {
		t.Fatalf("ShopName = %q", cfg.ShopName)
	}

	if cfg.TaxRate != 0.05 {
		t.Fatalf("TaxRate = %v", cfg.TaxRate)
	}

	if cfg.DataDir != "/var/lib/tillbook" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}

	// Untouched keys keep their defaults.
	if cfg.TimeZone != "Asia/Colombo" || cfg.LockTimeout != "5s" {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func Test_Load_Rejects_Invalid_Values(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed jsonc", `{"shop_name": `},
		{"tax rate too high", `{"tax_rate": 1.5}`},
		{"negative tax rate", `{"tax_rate": -0.1}`},
		{"unknown time zone", `{"time_zone": "Mars/Olympus_Mons"}`},
		{"bad lock timeout", `{"lock_timeout": "five seconds"}`},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)

			_, err := Load(fs.NewReal(), path, true)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load: err = %v, want %v", err, ErrInvalid)
			}
		})
	}
}

func Test_Save_Then_Load_Round_Trips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)

	want := Default()
	want.ShopName = "Corner Shop"
	want.TaxRate = 0.08
	want.JWTSecret = "s3cret"

	if err := Save(fs.NewReal(), path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(fs.NewReal(), path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got != want {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func Test_CatalogPath_Joins_The_Data_Dir(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DataDir = "/srv/shop"

	if got := cfg.CatalogPath(); got != "/srv/shop/products.json" {
		t.Fatalf("CatalogPath = %q", got)
	}
}
