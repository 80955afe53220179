package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/calvinalkan/tillbook/internal/config"
	"github.com/calvinalkan/tillbook/internal/fs"
)

func cmdInit(o *IO, stdin io.Reader, fsys fs.FS, cfgPath string, args []string) int {
	if hasHelpFlag(args) {
		printInitHelp(o.out)

		return 0
	}

	flagSet := flag.NewFlagSet("init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	shopName := flagSet.String("shop-name", "", "Shop name printed on receipts")
	currency := flagSet.String("currency", "", "Currency symbol")
	taxRate := flagSet.Float64("tax-rate", 0, "Flat tax rate, 0.05 = 5%")
	username := flagSet.String("username", "", "Admin username")
	password := flagSet.String("password", "", "Admin password (prompted when omitted)")
	force := flagSet.Bool("force", false, "Overwrite an existing config file")

	if err := flagSet.Parse(args); err != nil {
		fprintln(o.errOut, "error:", err)

		return 1
	}

	if _, err := fsys.Stat(cfgPath); err == nil && !*force {
		fprintln(o.errOut, "error: config already exists:", cfgPath, "(use --force to overwrite)")

		return 1
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		fprintln(o.errOut, "error:", err)

		return 1
	}

	pw := *password
	if pw == "" {
		o.Printf("Admin password: ")

		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fprintln(o.errOut, "error: reading password:", err)

			return 1
		}

		pw = strings.TrimSpace(line)
	}

	if pw == "" {
		fprintln(o.errOut, "error: admin password must not be empty")

		return 1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		fprintln(o.errOut, "error: hashing password:", err)

		return 1
	}

	cfg := config.Default()
	if *shopName != "" {
		cfg.ShopName = *shopName
	}

	if *currency != "" {
		cfg.CurrencySymbol = *currency
	}

	if flagSet.Changed("tax-rate") {
		cfg.TaxRate = *taxRate
	}

	if *username != "" {
		cfg.AdminUsername = *username
	}

	cfg.AdminPasswordHash = string(hash)
	cfg.JWTSecret = uuid.NewString()

	if err := config.Validate(cfg); err != nil {
		fprintln(o.errOut, "error:", err)

		return 1
	}

	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(filepath.Dir(cfgPath), dataDir)
	}

	if err := fsys.MkdirAll(filepath.Join(dataDir, "sales"), 0o755); err != nil {
		fprintln(o.errOut, "error: creating data directory:", err)

		return 1
	}

	if err := config.Save(fsys, cfgPath, cfg); err != nil {
		fprintln(o.errOut, "error:", err)

		return 1
	}

	o.Println("wrote", cfgPath)
	o.Println("data directory:", dataDir)

	return 0
}

func printInitHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook init [options]")
	fprintln(out, "")
	fprintln(out, "Create the config file and data directory for a new shop.")
	fprintln(out, "")
	fprintln(out, "Options:")
	fprintln(out, "  --shop-name=<name>   Shop name printed on receipts")
	fprintln(out, "  --currency=<sym>     Currency symbol [default: $]")
	fprintln(out, "  --tax-rate=N         Flat tax rate, 0.05 = 5%")
	fprintln(out, "  --username=<name>    Admin username [default: admin]")
	fprintln(out, "  --password=<pw>      Admin password (prompted when omitted)")
	fprintln(out, "  --force              Overwrite an existing config file")
}
