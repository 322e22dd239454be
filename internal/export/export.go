// Package export renders the active plan as CSV and saved plans as JSON or
// YAML documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/macroplan/internal/meal"
	"github.com/kingrea/macroplan/internal/plan"
	"github.com/kingrea/macroplan/internal/planstore"
)

// Format selects the saved-plan document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TotalsLabel names the synthetic last row of a plan CSV.
const TotalsLabel = "TOTALS"

var planHeader = []string{"Meal name", "Meal type", "Protein", "Carb", "Fat", "Count"}

// ParseFormat accepts "json", "yaml" or "yml" in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", value)
	}
}

// WritePlanCSV writes one row per instance followed by a TOTALS row holding
// the summed macros and the row count.
func WritePlanCSV(w io.Writer, instances []meal.Instance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(planHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, inst := range instances {
		r := inst.Record
		if err := cw.Write([]string{r.Name, r.Type, formatGrams(r.Protein), formatGrams(r.Carb), formatGrams(r.Fat), "1"}); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	totals := plan.SumInstances(instances)
	row := []string{TotalsLabel, "", formatGrams(totals.Protein), formatGrams(totals.Carb), formatGrams(totals.Fat), strconv.Itoa(len(instances))}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("export: write totals: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// WriteSavedPlan writes p verbatim in the requested format.
func WriteSavedPlan(w io.Writer, p planstore.SavedPlan, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("export: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("export: encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

func formatGrams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
