package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transaction id format: <YYYYMMDD>-<HHMMSS>-<4-digit sub-second
// suffix>, e.g. "20250411-073015-4821". The date segment routes receipt
// lookups to the correct day's ledger document, and ids sort lexically in
// creation order.

const (
	txIDDateFmt = "20060102"
	txIDTimeFmt = "150405"

	txIDSuffixDigits = 4
	txIDSuffixMax    = 10_000
)

// IDGenerator issues transaction ids from the wall clock in the shop's
// time zone.
//
// The sub-second suffix is low-cardinality, so the generator remembers
// the last id it issued and bumps the suffix whenever a new id would not
// sort after it. Ids from one process are therefore unique and strictly
// increasing; collisions across processes remain possible in the same
// sub-second window and are an accepted risk of this design.
type IDGenerator struct {
	mu   sync.Mutex
	loc  *time.Location
	now  func() time.Time
	last string
}

// NewIDGenerator returns a generator stamping ids in loc (nil means
// local time).
func NewIDGenerator(loc *time.Location) *IDGenerator {
	if loc == nil {
		loc = time.Local
	}

	return &IDGenerator{loc: loc, now: time.Now}
}

// Next returns a fresh transaction id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().In(g.loc)
	// Nanoseconds scaled down to 4 digits (hundred-microsecond ticks).
	suffix := now.Nanosecond() / 100_000

	id := fmt.Sprintf("%s-%s-%0*d",
		now.Format(txIDDateFmt), now.Format(txIDTimeFmt), txIDSuffixDigits, suffix)

	if g.last != "" && id <= g.last {
		id = bumpSuffix(g.last)
	}

	g.last = id

	return id
}

// bumpSuffix increments the numeric suffix of id. At 9999 the suffix
// wraps and the id repeats; at sustained rates above 10k sales per
// second this store is the wrong tool anyway.
func bumpSuffix(id string) string {
	cut := strings.LastIndex(id, "-")
	n, _ := strconv.Atoi(id[cut+1:])

	return fmt.Sprintf("%s-%0*d", id[:cut], txIDSuffixDigits, (n+1)%txIDSuffixMax)
}

// ParseIDDate extracts the calendar date embedded in a transaction id.
// It fails with [ErrInvalidID] when the id does not have the expected
// shape or the date segment is not a real calendar date, so a lookup
// with a garbage id never degenerates into scanning every document.
func ParseIDDate(id string) (time.Time, error) {
	dateSeg, rest, ok := strings.Cut(id, "-")
	if !ok || rest == "" || len(dateSeg) != len(txIDDateFmt) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	date, err := time.ParseInLocation(txIDDateFmt, dateSeg, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}

	return date, nil
}
