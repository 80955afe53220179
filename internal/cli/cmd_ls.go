package cli

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tillbook/internal/store"
)

func cmdLs(a *app, args []string) int {
	if hasHelpFlag(args) {
		printLsHelp(a.io.out)

		return 0
	}

	flagSet := flag.NewFlagSet("ls", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	category := flagSet.String("category", "", "Filter by category")

	if err := flagSet.Parse(args); err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	products, err := a.catalog.List()
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	for _, p := range products {
		if *category != "" && !strings.EqualFold(p.Category, *category) {
			continue
		}

		a.io.Println(formatProductLine(p, a.cfg.CurrencySymbol))
	}

	return 0
}

func formatProductLine(p store.Product, currency string) string {
	line := fmt.Sprintf("%-16s %s%.2f  %s", p.SKU, currency, p.Price, p.Name)
	if p.Category != "" {
		line += " [" + p.Category + "]"
	}

	return line
}

func printLsHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook ls [--category=<cat>]")
	fprintln(out, "")
	fprintln(out, "List catalog products in document order.")
}
