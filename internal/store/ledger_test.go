package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	doc, dir := newTestDoc(t)

	return NewLedger(doc, dir)
}

func testSale(id string, items ...Item) Sale {
	if len(items) == 0 {
		items = []Item{{SKU: "A1", Name: "Widget", Quantity: 1, PriceAtSale: 9.99}}
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.PriceAtSale * float64(item.Quantity)
	}

	return Sale{
		TransactionID: id,
		Timestamp:     "2025-04-11T07:25:00+05:30",
		Items:         items,
		Subtotal:      subtotal,
		TaxAmount:     0,
		TotalAmount:   subtotal,
		PaymentMethod: "Cash",
	}
}

func Test_Ledger_ListForDate_Is_Empty_For_Never_Written_Day(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	sales, err := ledger.ListForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}

	if len(sales) != 0 {
		t.Fatalf("ListForDate on missing document = %d sales, want 0", len(sales))
	}
}

func Test_Ledger_PathForDate_Follows_The_Daily_Naming_Pattern(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	got := filepath.Base(ledger.PathForDate(time.Date(2025, 4, 11, 15, 4, 5, 0, time.UTC)))
	if got != "sales_2025-04-11.json" {
		t.Fatalf("PathForDate = %q, want %q", got, "sales_2025-04-11.json")
	}
}

func Test_Ledger_Append_Then_FindByID_Returns_The_Sale(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	want := testSale("20250411-072500-0001",
		Item{SKU: "A1", Name: "Widget", Quantity: 2, PriceAtSale: 5.00},
		Item{SKU: "B2", Name: "Gasket", Quantity: 1, PriceAtSale: 3.00},
	)

	if err := ledger.Append(want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, found, err := ledger.FindByID(want.TransactionID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	if !found {
		t.Fatal("FindByID: sale not found")
	}

	if got.TotalAmount != 13.00 {
		t.Fatalf("TotalAmount = %v, want 13.00", got.TotalAmount)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FindByID mismatch (-want +got):\n%s", diff)
	}

	if len(got.Items) != 2 || got.Items[0].SKU != "A1" || got.Items[1].SKU != "B2" {
		t.Fatalf("items not in insertion order: %+v", got.Items)
	}
}

func Test_Ledger_Concurrent_Appends_Lose_Nothing(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	const appends = 25

	var wg sync.WaitGroup

	for i := 0; i < appends; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			sale := testSale(fmt.Sprintf("20250411-072500-%04d", i))
			if err := ledger.Append(sale); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}

	wg.Wait()

	sales, err := ledger.ListForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}

	if len(sales) != appends {
		t.Fatalf("ledger holds %d sales, want %d (lost or duplicated appends)", len(sales), appends)
	}

	seen := make(map[string]bool, appends)
	for _, s := range sales {
		if seen[s.TransactionID] {
			t.Fatalf("duplicate transaction id %s", s.TransactionID)
		}

		seen[s.TransactionID] = true
	}
}

// Lookup must be routed by the id's embedded date. Every other day's
// document is planted with garbage, so any stray read would fail loudly.
func Test_Ledger_FindByID_Reads_Only_The_Ids_Own_Day(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	want := testSale("20250411-093000-0042")
	if err := ledger.Append(want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, other := range []string{"2025-04-10", "2025-04-12", "2024-12-31"} {
		path := filepath.Join(ledger.dir, "sales_"+other+".json")
		if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got, found, err := ledger.FindByID(want.TransactionID)
	if err != nil {
		t.Fatalf("FindByID: %v (scanned a foreign day's document?)", err)
	}

	if !found {
		t.Fatal("FindByID: sale not found")
	}

	if got.TransactionID != want.TransactionID {
		t.Fatalf("TransactionID = %s, want %s", got.TransactionID, want.TransactionID)
	}
}

func Test_Ledger_FindByID_Rejects_Malformed_Ids(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	for _, id := range []string{
		"",
		"garbage",
		"2025-072500-0001",      // date segment too short
		"20251341-072500-0001",  // month 13
		"2025041a-072500-0001",  // non-digit date
		"20250411",              // no time segment
	} {
		_, _, err := ledger.FindByID(id)
		if !errors.Is(err, ErrInvalidID) {
			t.Fatalf("FindByID(%q): err = %v, want %v", id, err, ErrInvalidID)
		}
	}
}

func Test_Ledger_FindByID_Reports_Absent_Sale_As_Not_Found(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	_, found, err := ledger.FindByID("20250411-072500-9999")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	if found {
		t.Fatal("FindByID reported a match in an empty ledger")
	}
}

func Test_Ledger_Append_Aborts_On_Corrupt_Existing_Document(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	path := ledger.PathForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))

	corrupt := []byte(`[{"transaction_id": truncated`)
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := ledger.Append(testSale("20250411-120000-0001"))

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Append on corrupt document: err = %v, want *DecodeError", err)
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}

	if string(got) != string(corrupt) {
		t.Fatalf("corrupt document was overwritten: %q", got)
	}
}

func Test_Ledger_Append_Coerces_Non_Array_Document_To_Empty(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	path := ledger.PathForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))

	// Valid JSON, wrong shape. Unlike syntactically corrupt bytes this is
	// treated as an empty day rather than failing the sale.
	if err := os.WriteFile(path, []byte(`null`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := ledger.Append(testSale("20250411-120000-0001")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sales, err := ledger.ListForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}

	if len(sales) != 1 {
		t.Fatalf("ledger holds %d sales, want 1", len(sales))
	}
}

func Test_Ledger_Append_Validates_The_Sale_First(t *testing.T) {
	t.Parallel()

	base := testSale("20250411-072500-0001")

	tests := []struct {
		name   string
		mutate func(*Sale)
	}{
		{"no items", func(s *Sale) { s.Items = nil }},
		{"zero quantity", func(s *Sale) { s.Items[0].Quantity = 0 }},
		{"negative quantity", func(s *Sale) { s.Items[0].Quantity = -1 }},
		{"negative price", func(s *Sale) { s.Items[0].PriceAtSale = -1 }},
		{"item without sku", func(s *Sale) { s.Items[0].SKU = "" }},
		{"negative total", func(s *Sale) { s.TotalAmount = -1 }},
		{"bad timestamp", func(s *Sale) { s.Timestamp = "yesterday" }},
		{"no payment method", func(s *Sale) { s.PaymentMethod = "" }},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := newTestLedger(t)

			sale := base
			sale.Items = []Item{base.Items[0]}
			tt.mutate(&sale)

			err := ledger.Append(sale)
			if !errors.Is(err, ErrInvalidSale) {
				t.Fatalf("Append: err = %v, want %v", err, ErrInvalidSale)
			}
		})
	}
}

func Test_Ledger_Dates_Lists_Days_With_Documents_In_Order(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t)

	for _, id := range []string{"20250411-100000-0001", "20250409-100000-0001", "20250410-100000-0001"} {
		if err := ledger.Append(testSale(id)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Noise the scan must skip.
	for _, name := range []string{"products.json", "sales_notadate.json", "sales_2025-04-08.bak"} {
		if err := os.WriteFile(filepath.Join(ledger.dir, name), []byte(`[]`), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	dates, err := ledger.Dates()
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}

	got := make([]string, len(dates))
	for i, d := range dates {
		got[i] = d.Format("2006-01-02")
	}

	want := []string{"2025-04-09", "2025-04-10", "2025-04-11"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Dates mismatch (-want +got):\n%s", diff)
	}
}
