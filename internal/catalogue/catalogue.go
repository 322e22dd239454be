// Package catalogue loads the meal catalogue from CSV and exposes the typed
// records the planner works with.
package catalogue

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kingrea/macroplan/internal/meal"
)

// Required column headers, matched case-sensitively after trimming.
const (
	ColumnName    = "Meal name"
	ColumnType    = "Meal type"
	ColumnProtein = "Protein"
	ColumnCarb    = "Carb"
	ColumnFat     = "Fat"
)

var requiredColumns = []string{ColumnName, ColumnType, ColumnProtein, ColumnCarb, ColumnFat}

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("catalogue: missing required columns")

// Entry is one catalogue row. Columns other than the required five are kept
// in Extra.
type Entry struct {
	Record meal.Record
	Extra  map[string]string
}

// Catalogue is the parsed list of entries in file order.
type Catalogue struct {
	Entries []Entry
}

// Len returns the number of entries.
func (c Catalogue) Len() int {
	return len(c.Entries)
}

// Records returns the typed records in catalogue order.
func (c Catalogue) Records() []meal.Record {
	out := make([]meal.Record, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.Record)
	}
	return out
}

// Types returns the distinct non-empty meal types, sorted.
func (c Catalogue) Types() []string {
	seen := map[string]struct{}{}
	var types []string
	for _, e := range c.Entries {
		t := e.Record.Type
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Filter keeps the entries whose type is in types. An empty selection keeps
// everything.
func (c Catalogue) Filter(types []string) Catalogue {
	if len(types) == 0 {
		return c
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	out := Catalogue{}
	for _, e := range c.Entries {
		if _, ok := allowed[e.Record.Type]; ok {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// Sorted returns a copy ordered by meal type, then meal name.
func (c Catalogue) Sorted() Catalogue {
	entries := make([]Entry, len(c.Entries))
	copy(entries, c.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Record, entries[j].Record
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Name < b.Name
	})
	return Catalogue{Entries: entries}
}

// LoadFile parses the CSV catalogue at path.
func LoadFile(path string) (Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("catalogue: open %s: %w", path, err)
	}
	defer f.Close()
	cat, err := Parse(f)
	if err != nil {
		return Catalogue{}, fmt.Errorf("%w (%s)", err, path)
	}
	return cat, nil
}

// Parse reads a CSV catalogue with a header row. Macro cells that are empty,
// unparsable, negative or not finite become 0.
func Parse(r io.Reader) (Catalogue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Catalogue{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
		}
		return Catalogue{}, fmt.Errorf("catalogue: read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Catalogue{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	required := make(map[int]struct{}, len(requiredColumns))
	for _, col := range requiredColumns {
		required[columns[col]] = struct{}{}
	}

	cat := Catalogue{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Catalogue{}, fmt.Errorf("catalogue: line %d: %w", line, err)
		}
		if blankRow(row) {
			continue
		}
		cell := func(col string) string {
			idx := columns[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		entry := Entry{
			Record: meal.Record{
				Name:    cell(ColumnName),
				Type:    cell(ColumnType),
				Protein: parseMacro(cell(ColumnProtein)),
				Carb:    parseMacro(cell(ColumnCarb)),
				Fat:     parseMacro(cell(ColumnFat)),
			},
		}
		for idx, value := range row {
			if _, ok := required[idx]; ok || idx >= len(header) || header[idx] == "" {
				continue
			}
			if entry.Extra == nil {
				entry.Extra = map[string]string{}
			}
			entry.Extra[header[idx]] = strings.TrimSpace(value)
		}
		cat.Entries = append(cat.Entries, entry)
	}
	return cat, nil
}

func parseMacro(value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
