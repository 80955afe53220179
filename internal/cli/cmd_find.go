package cli

import "io"

func cmdFind(a *app, args []string) int {
	if hasHelpFlag(args) {
		printFindHelp(a.io.out)

		return 0
	}

	if len(args) != 1 {
		fprintln(a.io.errOut, "error: find takes exactly one search term")

		return 1
	}

	matches, err := a.catalog.Search(args[0])
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	if len(matches) == 0 {
		a.io.Println("no matches")

		return 0
	}

	for _, p := range matches {
		a.io.Println(formatProductLine(p, a.cfg.CurrencySymbol))
	}

	return 0
}

func printFindHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook find <term>")
	fprintln(out, "")
	fprintln(out, "Search products by sku or name substring, case-insensitive.")
}
