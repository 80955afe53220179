package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Item is one line of a sale. Name and price are captured at sale time
// and never re-derived from the catalog afterwards.
type Item struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
}

// Sale is one completed transaction. Immutable once appended; owned by
// the ledger document of the calendar day embedded in its id.
type Sale struct {
	TransactionID string  `json:"transaction_id"`
	Timestamp     string  `json:"timestamp"`
	Items         []Item  `json:"items"`
	Subtotal      float64 `json:"subtotal"`
	TaxAmount     float64 `json:"tax_amount"`
	TotalAmount   float64 `json:"total_amount"`
	PaymentMethod string  `json:"payment_method"`
}

const (
	ledgerPrefix  = "sales_"
	ledgerExt     = ".json"
	ledgerDateFmt = "2006-01-02"
)

// Ledger manages the date-partitioned sale documents in one directory,
// one document per calendar day.
type Ledger struct {
	doc *DocumentFile
	dir string
}

// NewLedger returns a ledger store writing sales_<YYYY-MM-DD>.json
// documents under dir.
func NewLedger(doc *DocumentFile, dir string) *Ledger {
	return &Ledger{doc: doc, dir: dir}
}

// PathForDate returns the document path for date's calendar day.
func (l *Ledger) PathForDate(date time.Time) string {
	return filepath.Join(l.dir, ledgerPrefix+date.Format(ledgerDateFmt)+ledgerExt)
}

// ListForDate returns all transactions recorded on date's calendar day,
// in append order. A day with no document yet is an empty sequence; the
// first sale of the day creates it lazily.
func (l *Ledger) ListForDate(date time.Time) ([]Sale, error) {
	path := l.PathForDate(date)

	data, err := l.doc.ReadAll(path)
	if err != nil {
		return nil, err
	}

	return DecodeRecords[Sale](path, data)
}

// Append validates sale and appends it to the ledger document of the day
// embedded in its transaction id, as one read-modify-write under an
// exclusive lock. Order within a document is the order in which appends
// acquire the lock. A decode failure on existing content aborts without
// writing.
func (l *Ledger) Append(sale Sale) error {
	if err := ValidateSale(sale); err != nil {
		return err
	}

	date, err := ParseIDDate(sale.TransactionID)
	if err != nil {
		return err
	}

	path := l.PathForDate(date)

	return updateRecords(l.doc, path, func(sales []Sale) ([]Sale, error) {
		return append(sales, sale), nil
	})
}

// FindByID looks up a transaction by id. The id's embedded date selects
// the one candidate document; other days are never read. A malformed id
// fails with [ErrInvalidID], an absent transaction is (zero, false, nil).
func (l *Ledger) FindByID(id string) (Sale, bool, error) {
	date, err := ParseIDDate(id)
	if err != nil {
		return Sale{}, false, err
	}

	sales, err := l.ListForDate(date)
	if err != nil {
		return Sale{}, false, err
	}

	for _, s := range sales {
		if s.TransactionID == id {
			return s, true, nil
		}
	}

	return Sale{}, false, nil
}

// Dates returns the calendar days that have a ledger document, in
// ascending order. Files not matching the ledger naming pattern are
// ignored.
func (l *Ledger) Dates() ([]time.Time, error) {
	entries, err := l.doc.readDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading ledger directory: %w", err)
	}

	dates := []time.Time{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, ledgerPrefix) || !strings.HasSuffix(name, ledgerExt) {
			continue
		}

		raw := strings.TrimSuffix(strings.TrimPrefix(name, ledgerPrefix), ledgerExt)

		date, parseErr := time.ParseInLocation(ledgerDateFmt, raw, time.UTC)
		if parseErr != nil {
			continue
		}

		dates = append(dates, date)
	}

	return dates, nil
}

// ValidateSale checks required fields and numeric bounds before any
// storage is touched: at least one item, positive quantities,
// non-negative money amounts, a parseable timestamp.
func ValidateSale(sale Sale) error {
	if strings.TrimSpace(sale.TransactionID) == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidSale)
	}

	if _, err := time.Parse(time.RFC3339, sale.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q is not RFC 3339", ErrInvalidSale, sale.Timestamp)
	}

	if len(sale.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidSale)
	}

	for i, item := range sale.Items {
		if strings.TrimSpace(item.SKU) == "" {
			return fmt.Errorf("%w: item %d has no sku", ErrInvalidSale, i)
		}

		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidSale, i)
		}

		if item.PriceAtSale < 0 {
			return fmt.Errorf("%w: item %d price must be non-negative", ErrInvalidSale, i)
		}
	}

	if sale.Subtotal < 0 || sale.TaxAmount < 0 || sale.TotalAmount < 0 {
		return fmt.Errorf("%w: amounts must be non-negative", ErrInvalidSale)
	}

	if strings.TrimSpace(sale.PaymentMethod) == "" {
		return fmt.Errorf("%w: payment method is required", ErrInvalidSale)
	}

	return nil
}
