// Package meal holds the value types shared by the catalogue, the active plan
// and the saved-plan store.
package meal

import (
	"fmt"
	"math"
)

// Record is one catalogue meal. Two records are the same meal only when all
// five fields are equal, so Record is safe to use as a map key.
type Record struct {
	Name    string  `json:"name" yaml:"name"`
	Type    string  `json:"type" yaml:"type"`
	Protein float64 `json:"protein" yaml:"protein"`
	Carb    float64 `json:"carb" yaml:"carb"`
	Fat     float64 `json:"fat" yaml:"fat"`
}

// Macros returns the record's macro fields.
func (r Record) Macros() Macros {
	return Macros{Protein: r.Protein, Carb: r.Carb, Fat: r.Fat}
}

// String renders the record for log lines.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s] P%.1f C%.1f F%.1f", r.Name, r.Type, r.Protein, r.Carb, r.Fat)
}

// Instance is one occurrence of a Record inside a plan.
type Instance struct {
	ID     string `json:"id"`
	Record Record `json:"record"`
}

// Macros is a protein/carb/fat triple in grams.
type Macros struct {
	Protein float64 `json:"protein" yaml:"protein"`
	Carb    float64 `json:"carb" yaml:"carb"`
	Fat     float64 `json:"fat" yaml:"fat"`
}

// Caps are the user's daily macro limits. A zero field means "no cap" when
// rendering percentages.
type Caps struct {
	Protein float64 `json:"protein" yaml:"protein"`
	Carb    float64 `json:"carb" yaml:"carb"`
	Fat     float64 `json:"fat" yaml:"fat"`
}

// DefaultCaps is used when no caps are configured.
var DefaultCaps = Caps{Protein: 190, Carb: 253, Fat: 57}

// Macros returns the caps as a Macros triple.
func (c Caps) Macros() Macros {
	return Macros{Protein: c.Protein, Carb: c.Carb, Fat: c.Fat}
}

// Records strips instance ids, keeping order.
func Records(instances []Instance) []Record {
	out := make([]Record, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Record)
	}
	return out
}

// Valid reports whether every cap is a finite number >= 0.
func (c Caps) Valid() bool {
	return ValidGrams(c.Protein) && ValidGrams(c.Carb) && ValidGrams(c.Fat)
}

// ValidGrams reports whether v is a finite, non-negative gram amount.
func ValidGrams(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
