package cli

import (
	"errors"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tillbook/internal/store"
)

func cmdAddProduct(a *app, args []string) int {
	if hasHelpFlag(args) {
		printAddProductHelp(a.io.out)

		return 0
	}

	flagSet := flag.NewFlagSet("add-product", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	sku := flagSet.String("sku", "", "Product sku, unique in the catalog")
	name := flagSet.String("name", "", "Display name")
	price := flagSet.Float64("price", 0, "Unit price")
	category := flagSet.String("category", "", "Category")

	if err := flagSet.Parse(args); err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	p := store.Product{
		SKU:      *sku,
		Name:     *name,
		Price:    *price,
		Category: *category,
	}

	err := a.catalog.Insert(p)
	switch {
	case errors.Is(err, store.ErrSKUExists):
		fprintln(a.io.errOut, "error: sku already exists:", p.SKU)

		return 1
	case err != nil:
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	a.io.Printf("added %s (%s%.2f)\n", p.SKU, a.cfg.CurrencySymbol, p.Price)

	return 0
}

func printAddProductHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook add-product --sku=<sku> --name=<name> --price=N [--category=<cat>]")
	fprintln(out, "")
	fprintln(out, "Add a product to the catalog. The sku must be unique.")
}
