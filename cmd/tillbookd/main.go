// Package main provides tillbookd, the HTTP server for the shop.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/tillbook/internal/config"
	"github.com/calvinalkan/tillbook/internal/fs"
	"github.com/calvinalkan/tillbook/internal/store"
	"github.com/calvinalkan/tillbook/internal/web"
	"github.com/calvinalkan/tillbook/pkg/kit"
)

const service = "tillbookd"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", config.FileName, "Path to the config file")
	listenAddr := flag.String("listen", "", "Listen address, overrides the config")
	flag.Parse()

	fsys := fs.NewReal()

	cfg, err := config.Load(fsys, *cfgPath, true)
	if err != nil {
		return err
	}

	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is not set, run `tillbook init` first")
	}

	// Data dir is relative to the config file so the daemon can run
	// from anywhere.
	if !filepath.IsAbs(cfg.DataDir) {
		absCfg, err := filepath.Abs(*cfgPath)
		if err != nil {
			return err
		}

		cfg.DataDir = filepath.Join(filepath.Dir(absCfg), cfg.DataDir)
	}

	if err := fsys.MkdirAll(cfg.SalesDir(), 0o755); err != nil {
		return err
	}

	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	doc := store.NewDocumentFile(fsys, cfg.LockTimeoutDuration())

	s := &web.Server{
		Log:     log,
		Config:  cfg,
		Catalog: store.NewCatalog(doc, cfg.CatalogPath()),
		Ledger:  store.NewLedger(doc, cfg.SalesDir()),
		IDs:     store.NewIDGenerator(cfg.Location()),
		JWT:     web.NewTokenMaker(cfg.JWTSecret),
	}

	h := web.NewHandler(s, web.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     prometheus.NewRegistry(),
		MetricsToken: cfg.MetricsToken,
	})

	log.Info("starting",
		zap.String("shop", cfg.ShopName),
		zap.String("data_dir", cfg.DataDir),
	)

	return kit.RunHTTPServer(cfg.ListenAddr, h, log)
}
