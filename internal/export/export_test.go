package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/macroplan/internal/meal"
	"github.com/kingrea/macroplan/internal/planstore"
)

var (
	chickenBowl = meal.Record{Name: "Chicken Bowl", Type: "Lunch", Protein: 40, Carb: 50, Fat: 10}
	yogurt      = meal.Record{Name: "Greek Yogurt", Type: "Snack", Protein: 17.5, Carb: 6, Fat: 0.7}
)

func TestWritePlanCSVAppendsTotalsRow(t *testing.T) {
	var buf bytes.Buffer
	instances := []meal.Instance{
		{ID: "1", Record: chickenBowl},
		{ID: "2", Record: yogurt},
		{ID: "3", Record: chickenBowl},
	}
	if err := WritePlanCSV(&buf, instances); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header + 3 + totals", len(rows))
	}
	if !reflect.DeepEqual(rows[0], planHeader) {
		t.Fatalf("header = %v", rows[0])
	}
	if !reflect.DeepEqual(rows[2], []string{"Greek Yogurt", "Snack", "17.5", "6", "0.7", "1"}) {
		t.Fatalf("row = %v", rows[2])
	}
	if want := []string{"TOTALS", "", "97.5", "106", "20.7", "3"}; !reflect.DeepEqual(rows[4], want) {
		t.Fatalf("totals row = %v, want %v", rows[4], want)
	}
}

func TestWritePlanCSVEmptyPlan(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlanCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[1] != "TOTALS,,0,0,0,0" {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func testPlan() planstore.SavedPlan {
	return planstore.SavedPlan{
		ID:        "plan-1",
		Name:      "Monday",
		CreatedAt: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
		Caps:      meal.Caps{Protein: 190, Carb: 253, Fat: 57},
		Meals:     []meal.Record{chickenBowl, yogurt},
	}
}

func TestWriteSavedPlanJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSavedPlan(&buf, testPlan(), FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	var decoded planstore.SavedPlan
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := testPlan()
	if decoded.ID != want.ID || decoded.Name != want.Name || !decoded.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("header mismatch: %+v", decoded)
	}
	if !reflect.DeepEqual(decoded.Meals, want.Meals) || decoded.Caps != want.Caps {
		t.Fatalf("body mismatch: %+v", decoded)
	}
}

func TestWriteSavedPlanYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSavedPlan(&buf, testPlan(), FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"id: plan-1", "name: Monday", "created_at: 2026-03-02T08:30:00Z", "protein: 190"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
	var decoded planstore.SavedPlan
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Meals, testPlan().Meals) {
		t.Fatalf("meals = %+v", decoded.Meals)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}
