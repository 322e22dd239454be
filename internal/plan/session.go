// Package plan implements the active meal plan: the ordered list of meal
// instances, its running macro totals, the capacity filter applied to the
// catalogue and the grouped view used for quantity editing.
package plan

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingrea/macroplan/internal/meal"
)

// Session is the active plan for one user session. It is not safe for
// concurrent use; the caller serialises actions.
type Session struct {
	caps      meal.Caps
	instances []meal.Instance
	totals    exactMacros
	newID     func() string
}

// SessionOption customizes a Session during construction.
type SessionOption func(*Session)

// WithIDGenerator overrides the instance id generator.
func WithIDGenerator(gen func() string) SessionOption {
	return func(s *Session) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSession creates an empty plan with the given caps.
func NewSession(caps meal.Caps, opts ...SessionOption) *Session {
	s := &Session{
		caps:   caps,
		newID:  uuid.NewString,
		totals: zeroMacros(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Add appends a new instance of record and adds its macros to the totals.
// Capacity is not checked here.
func (s *Session) Add(record meal.Record) meal.Instance {
	inst := meal.Instance{ID: s.newID(), Record: record}
	s.instances = append(s.instances, inst)
	s.totals = s.totals.add(record)
	return inst
}

// RemoveOne removes the first instance equal to record and reports whether
// one was found. Totals are untouched when nothing matches.
func (s *Session) RemoveOne(record meal.Record) bool {
	for i, inst := range s.instances {
		if inst.Record != record {
			continue
		}
		s.instances = append(s.instances[:i:i], s.instances[i+1:]...)
		s.totals = s.totals.sub(inst.Record)
		return true
	}
	return false
}

// Reset clears the plan and zeros the totals.
func (s *Session) Reset() {
	s.instances = nil
	s.totals = zeroMacros()
}

// Restore replaces the plan with records and the caps with caps, re-adding
// every record through Add.
func (s *Session) Restore(caps meal.Caps, records []meal.Record) {
	s.Reset()
	s.caps = caps
	for _, record := range records {
		s.Add(record)
	}
}

// Instances returns a copy of the plan in insertion order.
func (s *Session) Instances() []meal.Instance {
	out := make([]meal.Instance, len(s.instances))
	copy(out, s.instances)
	return out
}

// Len reports how many instances are in the plan.
func (s *Session) Len() int {
	return len(s.instances)
}

// Totals returns the running macro totals.
func (s *Session) Totals() meal.Macros {
	return s.totals.float()
}

// Caps returns the active caps.
func (s *Session) Caps() meal.Caps {
	return s.caps
}

// SetCaps replaces the active caps.
func (s *Session) SetCaps(caps meal.Caps) {
	s.caps = caps
}

// Remaining returns the capacity left under the active caps.
func (s *Session) Remaining() meal.Macros {
	return Remaining(s.caps, s.Totals())
}

// Groups returns the plan grouped by identical record.
func (s *Session) Groups() []Group {
	return GroupInstances(s.instances)
}

// exactMacros accumulates macros without floating point drift so the totals
// always equal the sum of the instances, whatever the order of operations.
type exactMacros struct {
	protein decimal.Decimal
	carb    decimal.Decimal
	fat     decimal.Decimal
}

func zeroMacros() exactMacros {
	return exactMacros{protein: decimal.Zero, carb: decimal.Zero, fat: decimal.Zero}
}

func (m exactMacros) add(r meal.Record) exactMacros {
	return exactMacros{
		protein: m.protein.Add(toDecimal(r.Protein)),
		carb:    m.carb.Add(toDecimal(r.Carb)),
		fat:     m.fat.Add(toDecimal(r.Fat)),
	}
}

func (m exactMacros) addTimes(r meal.Record, n int) exactMacros {
	q := decimal.NewFromInt(int64(n))
	return exactMacros{
		protein: m.protein.Add(toDecimal(r.Protein).Mul(q)),
		carb:    m.carb.Add(toDecimal(r.Carb).Mul(q)),
		fat:     m.fat.Add(toDecimal(r.Fat).Mul(q)),
	}
}

func (m exactMacros) sub(r meal.Record) exactMacros {
	return exactMacros{
		protein: m.protein.Sub(toDecimal(r.Protein)),
		carb:    m.carb.Sub(toDecimal(r.Carb)),
		fat:     m.fat.Sub(toDecimal(r.Fat)),
	}
}

func (m exactMacros) float() meal.Macros {
	return meal.Macros{
		Protein: m.protein.InexactFloat64(),
		Carb:    m.carb.InexactFloat64(),
		Fat:     m.fat.InexactFloat64(),
	}
}

// SumInstances totals the instances from scratch.
func SumInstances(instances []meal.Instance) meal.Macros {
	sum := zeroMacros()
	for _, inst := range instances {
		sum = sum.add(inst.Record)
	}
	return sum.float()
}

func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
