// Package cli implements the tillbook command line interface. Commands
// share the flat-file store with the HTTP server and coordinate with it
// through the same file locks.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/tillbook/internal/config"
	"github.com/calvinalkan/tillbook/internal/fs"
	"github.com/calvinalkan/tillbook/internal/store"
)

const helpFlag = "--help"

// app bundles the dependencies every command needs.
type app struct {
	io      *IO
	fsys    fs.FS
	cfg     config.Config
	cfgPath string
	catalog *store.Catalog
	ledger  *store.Ledger
	ids     *store.IDGenerator
}

// Run is the main entry point. Returns the process exit code.
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < 2 {
		printUsage(out)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}
	}

	cfgPath := flags.configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(workDir, config.FileName)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(workDir, cfgPath)
	}

	if len(flags.remaining) == 0 {
		printUsage(out)

		return 0
	}

	cmd := flags.remaining[0]
	cmdArgs := flags.remaining[1:]

	if cmd == "-h" || cmd == helpFlag {
		printUsage(out)

		return 0
	}

	fsys := fs.NewReal()
	ioCtx := NewIO(out, errOut)

	// init runs before a config file exists, everything else loads it.
	if cmd == "init" {
		code := cmdInit(ioCtx, stdin, fsys, cfgPath, cmdArgs)
		if code != 0 {
			return code
		}

		return ioCtx.Finish()
	}

	cfg, err := config.Load(fsys, cfgPath, false)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(workDir, cfg.DataDir)
	}

	doc := store.NewDocumentFile(fsys, cfg.LockTimeoutDuration())

	a := &app{
		io:      ioCtx,
		fsys:    fsys,
		cfg:     cfg,
		cfgPath: cfgPath,
		catalog: store.NewCatalog(doc, cfg.CatalogPath()),
		ledger:  store.NewLedger(doc, cfg.SalesDir()),
		ids:     store.NewIDGenerator(cfg.Location()),
	}

	var code int

	switch cmd {
	case "add-product":
		code = cmdAddProduct(a, cmdArgs)
	case "ls":
		code = cmdLs(a, cmdArgs)
	case "find":
		code = cmdFind(a, cmdArgs)
	case "sell":
		code = cmdSell(a, stdin, cmdArgs)
	case "receipt":
		code = cmdReceipt(a, cmdArgs)
	case "report":
		code = cmdReport(a, cmdArgs)
	case "print-config":
		code = cmdPrintConfig(a)
	default:
		fprintln(errOut, "error: unknown command:", cmd)
		printUsage(errOut)

		return 1
	}

	if code != 0 {
		return code
	}

	return ioCtx.Finish()
}

type globalFlags struct {
	workDir    string
	configPath string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		arg := args[idx]

		switch {
		case (arg == "-C" || arg == "--cwd") && idx+1 < len(args):
			flags.workDir = args[idx+1]
			idx += 2
		case strings.HasPrefix(arg, "--cwd="):
			flags.workDir = strings.TrimPrefix(arg, "--cwd=")
			idx++
		case arg == "-c" || arg == "--config":
			if idx+1 >= len(args) {
				return globalFlags{}, fmt.Errorf("flag requires an argument: %s", arg)
			}

			flags.configPath = args[idx+1]
			idx += 2
		case strings.HasPrefix(arg, "--config="):
			flags.configPath = strings.TrimPrefix(arg, "--config=")
			idx++
		case arg == "-h" || arg == helpFlag:
			flags.remaining = []string{helpFlag}

			return flags, nil
		case strings.HasPrefix(arg, "-") && arg != "-":
			return globalFlags{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			flags.remaining = args[idx:]

			return flags, nil
		}
	}

	return flags, nil
}

func cmdPrintConfig(a *app) int {
	formatted, err := config.Format(a.cfg)
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	a.io.Printf("%s", formatted)
	a.io.Println("# file:", a.cfgPath)

	return 0
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == helpFlag {
			return true
		}
	}

	return false
}

func printUsage(w io.Writer) {
	fprintln(w, `tillbook - flat-file point of sale

Usage: tillbook [options] <command> [args]

Options:
  -C, --cwd <dir>    Run as if started in <dir>
  -c, --config       Use specified config file

Commands:
  init                   Create the config file and data directory
  add-product            Add a product to the catalog
  ls                     List catalog products
  find <term>            Search products by sku or name
  sell                   Record a sale interactively
  receipt <id>           Print the receipt for a transaction
  report [--date=D]      Daily sales report, optional CSV export
  print-config           Show resolved configuration`)
}
