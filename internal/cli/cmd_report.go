package cli

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tillbook/internal/store"
)

const reportDateFmt = "2006-01-02"

func cmdReport(a *app, args []string) int {
	if hasHelpFlag(args) {
		printReportHelp(a.io.out)

		return 0
	}

	flagSet := flag.NewFlagSet("report", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	dateFlag := flagSet.String("date", "", "Report date, YYYY-MM-DD [default: today]")
	csvPath := flagSet.String("csv", "", "Also write the report as CSV to this path")
	all := flagSet.Bool("all", false, "Summarize every recorded day instead")

	if err := flagSet.Parse(args); err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	if *all {
		return reportAllDays(a)
	}

	loc := a.cfg.Location()
	date := time.Now().In(loc)

	if *dateFlag != "" {
		parsed, err := time.ParseInLocation(reportDateFmt, *dateFlag, loc)
		if err != nil {
			fprintln(a.io.errOut, "error: --date must be YYYY-MM-DD")

			return 1
		}

		date = parsed
	}

	sales, err := a.ledger.ListForDate(date)
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	var revenue float64
	for _, sale := range sales {
		revenue += sale.TotalAmount
	}

	a.io.Println("report for", date.Format(reportDateFmt))
	a.io.Println("transactions:", len(sales))
	a.io.Printf("revenue: %s%.2f\n", a.cfg.CurrencySymbol, revenue)

	for _, sale := range sales {
		a.io.Printf("  %s  %-8s %s%8.2f\n",
			sale.TransactionID, sale.PaymentMethod, a.cfg.CurrencySymbol, sale.TotalAmount)
	}

	if *csvPath != "" {
		if err := writeReportCSV(a, *csvPath, sales); err != nil {
			fprintln(a.io.errOut, "error:", err)

			return 1
		}

		a.io.Println("wrote", *csvPath)
	}

	return 0
}

func reportAllDays(a *app) int {
	dates, err := a.ledger.Dates()
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	if len(dates) == 0 {
		a.io.Println("no recorded sales")

		return 0
	}

	for _, date := range dates {
		sales, err := a.ledger.ListForDate(date)
		if err != nil {
			fprintln(a.io.errOut, "error:", err)

			return 1
		}

		var revenue float64
		for _, sale := range sales {
			revenue += sale.TotalAmount
		}

		a.io.Printf("%s  %3d transactions  %s%.2f\n",
			date.Format(reportDateFmt), len(sales), a.cfg.CurrencySymbol, revenue)
	}

	return 0
}

// writeReportCSV exports one row per sold item, the shape spreadsheet
// users expect. The file lands atomically so a crash cannot leave a
// half-written export.
func writeReportCSV(a *app, path string, sales []store.Sale) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	header := []string{"transaction_id", "timestamp", "sku", "name", "quantity", "price_at_sale", "line_total", "payment_method"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	for _, sale := range sales {
		for _, it := range sale.Items {
			row := []string{
				sale.TransactionID,
				sale.Timestamp,
				it.SKU,
				it.Name,
				strconv.Itoa(it.Quantity),
				formatAmount(it.PriceAtSale),
				formatAmount(it.PriceAtSale * float64(it.Quantity)),
				sale.PaymentMethod,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return a.fsys.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func printReportHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook report [--date=YYYY-MM-DD] [--csv=out.csv] [--all]")
	fprintln(out, "")
	fprintln(out, "Summarize one day of sales. --csv additionally exports one row")
	fprintln(out, "per sold item. --all prints one summary line per recorded day.")
}
