package engine

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PriceRecord is one entry of a component's price history. ValidTo == nil
// marks the currently open record. Windows are half-open: [ValidFrom, ValidTo).
type PriceRecord struct {
	ID          snowflake.ID
	ComponentID snowflake.ID
	Cost        float64
	Currency    string
	ValidFrom   time.Time
	ValidTo     *time.Time
}

// Contains reports whether asOf falls inside the record's validity window.
func (r PriceRecord) Contains(asOf time.Time) bool {
	if asOf.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || asOf.Before(*r.ValidTo)
}

// ResolvedPrice is the winning record plus a flag for the data-integrity case
// where more than one window contained asOf.
type ResolvedPrice struct {
	Record      PriceRecord
	Overlapping bool
}

// ResolveActivePrice selects the single record valid at asOf. Overlapping
// candidates are a data-integrity violation, not a hard failure: the record
// with the latest ValidFrom wins and the conflict is reported on the result.
// No applicable record is a hard failure; a price that cannot be traced to a
// history record must never silently default to zero.
func ResolveActivePrice(history []PriceRecord, asOf time.Time) (ResolvedPrice, error) {
	var (
		winner PriceRecord
		found  bool
		count  int
	)
	for _, rec := range history {
		if !rec.Contains(asOf) {
			continue
		}
		count++
		if !found || rec.ValidFrom.After(winner.ValidFrom) {
			winner = rec
			found = true
		}
	}
	if !found {
		return ResolvedPrice{}, fmt.Errorf("%w: no record valid at %s", ErrNoActivePrice, asOf.UTC().Format(time.RFC3339))
	}
	return ResolvedPrice{Record: winner, Overlapping: count > 1}, nil
}
