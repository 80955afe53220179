package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/calvinalkan/tillbook/internal/store"
)

func cmdReceipt(a *app, args []string) int {
	if hasHelpFlag(args) {
		printReceiptHelp(a.io.out)

		return 0
	}

	if len(args) != 1 {
		fprintln(a.io.errOut, "error: receipt takes exactly one transaction id")

		return 1
	}

	id := args[0]

	sale, ok, err := a.ledger.FindByID(id)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			fprintln(a.io.errOut, "error: malformed transaction id:", id)

			return 1
		}

		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	if !ok {
		fprintln(a.io.errOut, "error: no sale with id:", id)

		return 1
	}

	printReceipt(a.io, a.cfg.ShopName, a.cfg.CurrencySymbol, sale)

	return 0
}

const receiptWidth = 38

func printReceipt(o *IO, shopName, currency string, sale store.Sale) {
	rule := strings.Repeat("=", receiptWidth)

	o.Println(rule)
	o.Println(centered(shopName, receiptWidth))
	o.Println(rule)
	o.Println("receipt:", sale.TransactionID)
	o.Println("date:   ", sale.Timestamp)
	o.Println(strings.Repeat("-", receiptWidth))

	for _, it := range sale.Items {
		amount := it.PriceAtSale * float64(it.Quantity)
		o.Printf("%-22s x%-3d %s%8.2f\n", clip(it.Name, 22), it.Quantity, currency, amount)
	}

	o.Println(strings.Repeat("-", receiptWidth))
	o.Printf("%-27s %s%8.2f\n", "subtotal", currency, sale.Subtotal)
	o.Printf("%-27s %s%8.2f\n", "tax", currency, sale.TaxAmount)
	o.Printf("%-27s %s%8.2f\n", "total", currency, sale.TotalAmount)
	o.Println("paid by:", sale.PaymentMethod)
	o.Println(rule)
}

func centered(s string, width int) string {
	if len(s) >= width {
		return s
	}

	pad := (width - len(s)) / 2

	return strings.Repeat(" ", pad) + s
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max-3] + "..."
}

func printReceiptHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook receipt <transaction-id>")
	fprintln(out, "")
	fprintln(out, "Print the receipt for a past sale by its transaction id,")
	fprintln(out, "e.g. 20260830-142501-0042.")
}
