package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/calvinalkan/tillbook/internal/store"
)

// prompter abstracts line input so sell works both on a real terminal
// and with piped input.
type prompter interface {
	Prompt(label string) (string, error)
	Close() error
}

type linerPrompter struct {
	state *liner.State
}

func (p *linerPrompter) Prompt(label string) (string, error) {
	return p.state.Prompt(label)
}

func (p *linerPrompter) Close() error {
	return p.state.Close()
}

type readerPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *readerPrompter) Prompt(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if err != nil && line == "" {
		return "", io.EOF
	}

	return strings.TrimRight(line, "\n"), nil
}

func (p *readerPrompter) Close() error { return nil }

func newPrompter(stdin io.Reader, out io.Writer) prompter {
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return &linerPrompter{state: liner.NewLiner()}
	}

	return &readerPrompter{in: bufio.NewReader(stdin), out: out}
}

func cmdSell(a *app, stdin io.Reader, args []string) int {
	if hasHelpFlag(args) {
		printSellHelp(a.io.out)

		return 0
	}

	p := newPrompter(stdin, a.io.out)
	defer func() { _ = p.Close() }()

	items, code := collectItems(a, p)
	if code != 0 {
		return code
	}

	if len(items) == 0 {
		a.io.Println("no items, sale cancelled")

		return 0
	}

	payment, err := p.Prompt("payment [Cash]> ")
	if err != nil && !errors.Is(err, io.EOF) {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	payment = strings.TrimSpace(payment)
	if payment == "" {
		payment = "Cash"
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.PriceAtSale * float64(it.Quantity)
	}

	tax := roundMoney(subtotal * a.cfg.TaxRate)
	subtotal = roundMoney(subtotal)

	sale := store.Sale{
		TransactionID: a.ids.Next(),
		Timestamp:     time.Now().In(a.cfg.Location()).Format(time.RFC3339),
		Items:         items,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		TotalAmount:   roundMoney(subtotal + tax),
		PaymentMethod: payment,
	}

	if err := a.ledger.Append(sale); err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 1
	}

	a.io.Println("")
	printReceipt(a.io, a.cfg.ShopName, a.cfg.CurrencySymbol, sale)

	return 0
}

func collectItems(a *app, p prompter) ([]store.Item, int) {
	var items []store.Item

	for {
		sku, err := p.Prompt("sku (empty to finish)> ")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fprintln(a.io.errOut, "error:", err)

			return nil, 1
		}

		sku = strings.TrimSpace(sku)
		if sku == "" {
			break
		}

		product, ok, err := a.catalog.FindBySKU(sku)
		if err != nil {
			fprintln(a.io.errOut, "error:", err)

			return nil, 1
		}
		if !ok {
			a.io.Println("unknown sku:", sku)

			continue
		}

		qty, ok := promptQuantity(a, p)
		if !ok {
			continue
		}

		items = mergeItem(items, store.Item{
			SKU:         product.SKU,
			Name:        product.Name,
			Quantity:    qty,
			PriceAtSale: product.Price,
		})

		a.io.Printf("  %s x%d @ %s%.2f\n", product.Name, qty, a.cfg.CurrencySymbol, product.Price)
	}

	return items, 0
}

func promptQuantity(a *app, p prompter) (int, bool) {
	raw, err := p.Prompt("qty [1]> ")
	if errors.Is(err, io.EOF) {
		return 1, true
	}
	if err != nil {
		fprintln(a.io.errOut, "error:", err)

		return 0, false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, true
	}

	qty, err := strconv.Atoi(raw)
	if err != nil || qty <= 0 {
		a.io.Println("quantity must be a positive number")

		return 0, false
	}

	return qty, true
}

// mergeItem folds repeated skus into one line with a summed quantity.
func mergeItem(items []store.Item, item store.Item) []store.Item {
	for i := range items {
		if items[i].SKU == item.SKU {
			items[i].Quantity += item.Quantity

			return items
		}
	}

	return append(items, item)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func printSellHelp(out io.Writer) {
	fprintln(out, "Usage: tillbook sell")
	fprintln(out, "")
	fprintln(out, "Record a sale interactively. Enter one sku per line, an empty")
	fprintln(out, "line finishes the cart. Tax is applied from the config rate.")
}
