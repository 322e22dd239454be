package plan

import (
	"github.com/shopspring/decimal"

	"github.com/kingrea/macroplan/internal/meal"
)

// Candidate is a catalogue record annotated with whether it still fits under
// the remaining capacity. Records that do not fit stay listed but cannot be
// added.
type Candidate struct {
	Record meal.Record
	Fits   bool
}

// Remaining returns caps minus totals per field, floored at zero. A zero cap
// leaves zero capacity.
func Remaining(caps meal.Caps, totals meal.Macros) meal.Macros {
	return meal.Macros{
		Protein: headroom(caps.Protein, totals.Protein),
		Carb:    headroom(caps.Carb, totals.Carb),
		Fat:     headroom(caps.Fat, totals.Fat),
	}
}

// Fits reports whether every macro of record is within remaining.
func Fits(record meal.Record, remaining meal.Macros) bool {
	return record.Protein <= remaining.Protein &&
		record.Carb <= remaining.Carb &&
		record.Fat <= remaining.Fat
}

// Candidates evaluates each record against remaining, preserving order.
func Candidates(records []meal.Record, remaining meal.Macros) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, record := range records {
		out = append(out, Candidate{Record: record, Fits: Fits(record, remaining)})
	}
	return out
}

func headroom(limit, used float64) float64 {
	left := toDecimal(limit).Sub(toDecimal(used))
	if left.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return left.InexactFloat64()
}
