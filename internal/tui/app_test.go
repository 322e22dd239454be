package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/macroplan/internal/catalogue"
	"github.com/kingrea/macroplan/internal/config"
	"github.com/kingrea/macroplan/internal/logging"
	"github.com/kingrea/macroplan/internal/meal"
)

const testCSV = `Meal name,Meal type,Protein,Carb,Fat
Chicken Bowl,Lunch,40,50,10
Oats,Breakfast,12.5,60,7
Steak Dinner,Dinner,60,20,45
Salmon,Dinner,35,0,20
`

func TestInitLoadsSortedCatalogue(t *testing.T) {
	app := newLoadedApp(t)
	if got, want := titles(app), []string{"Oats", "Salmon", "Steak Dinner", "Chicken Bowl"}; strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("catalogue order = %v, want %v", got, want)
	}
	if app.Session().Caps() != meal.DefaultCaps {
		t.Fatalf("session caps = %+v", app.Session().Caps())
	}
}

func TestAddRefusesMealThatWouldExceedCaps(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Steak Dinner")
	press(app, "a")
	if app.Session().Len() != 1 {
		t.Fatalf("expected steak to be added, plan has %d", app.Session().Len())
	}
	item := findItem(t, app, "Steak Dinner")
	if item.candidate.Fits {
		t.Fatalf("second steak should be flagged as over cap")
	}
	if !strings.Contains(item.Title(), "over cap") {
		t.Fatalf("title = %q", item.Title())
	}
	selectMeal(t, app, "Steak Dinner")
	press(app, "a")
	if app.Session().Len() != 1 {
		t.Fatalf("infeasible add must be refused, plan has %d", app.Session().Len())
	}
	if !strings.Contains(app.statusMsg, "exceed") {
		t.Fatalf("status = %q", app.statusMsg)
	}
	if got := app.Session().Totals().Fat; got != 45 {
		t.Fatalf("fat total = %v, want 45", got)
	}
}

func TestPlanPaneAdjustsQuantities(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Chicken Bowl")
	press(app, "enter")
	press(app, "tab")
	if app.focus != focusPlan {
		t.Fatalf("tab should focus the plan pane")
	}
	press(app, "+")
	press(app, "+")
	groups := app.Session().Groups()
	if len(groups) != 1 || groups[0].Quantity != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	if got := app.Session().Totals().Protein; got != 120 {
		t.Fatalf("protein = %v, want 120", got)
	}
	press(app, "-")
	press(app, "-")
	press(app, "-")
	if app.Session().Len() != 0 {
		t.Fatalf("plan should be empty, has %d", app.Session().Len())
	}
	if totals := app.Session().Totals(); totals != (meal.Macros{}) {
		t.Fatalf("totals = %+v, want zero", totals)
	}
	press(app, "-")
	if app.Session().Len() != 0 {
		t.Fatalf("decrement on empty plan should be a no-op")
	}
}

func TestIncrementRefusedAtCap(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Salmon")
	press(app, "a")
	press(app, "a")
	press(app, "tab")
	press(app, "+")
	if got := app.Session().Len(); got != 2 {
		t.Fatalf("third salmon would exceed fat cap, plan has %d", got)
	}
}

func TestSaveFlowRequiresName(t *testing.T) {
	app := newLoadedApp(t)
	press(app, "s")
	if app.state != statePlanner || app.statusMsg != "No meals selected yet." {
		t.Fatalf("saving an empty plan should be refused: state=%v status=%q", app.state, app.statusMsg)
	}
	selectMeal(t, app, "Oats")
	press(app, "a")
	press(app, "s")
	if app.state != stateSaveName {
		t.Fatalf("expected name prompt, state=%v", app.state)
	}
	press(app, "enter")
	if app.state != stateSaveName || !strings.Contains(app.statusMsg, "required") {
		t.Fatalf("blank name should be rejected: state=%v status=%q", app.state, app.statusMsg)
	}
	typeText(app, "  Monday ")
	press(app, "enter")
	if app.state != statePlanner {
		t.Fatalf("expected planner after save, state=%v", app.state)
	}
	plans := app.store.List()
	if len(plans) != 1 || plans[0].Name != "Monday" {
		t.Fatalf("plans = %+v", plans)
	}
	if len(plans[0].Meals) != 1 || plans[0].Meals[0].Name != "Oats" {
		t.Fatalf("saved meals = %+v", plans[0].Meals)
	}
}

func TestLoadSavedPlanRestoresSession(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Chicken Bowl")
	press(app, "a")
	selectMeal(t, app, "Oats")
	press(app, "a")
	press(app, "a")
	if _, err := app.store.Save("Tuesday", meal.Caps{Protein: 150, Carb: 200, Fat: 50}, app.Session().Instances()); err != nil {
		t.Fatalf("save: %v", err)
	}
	press(app, "x")
	if app.Session().Len() != 0 {
		t.Fatalf("reset should clear the plan")
	}

	press(app, "p")
	if app.state != stateSavedPlans || len(app.savedMenu.Items()) != 1 {
		t.Fatalf("expected one saved plan, state=%v items=%d", app.state, len(app.savedMenu.Items()))
	}
	press(app, "enter")
	if app.state != statePlanner {
		t.Fatalf("expected planner after load, state=%v", app.state)
	}
	if app.Session().Len() != 3 {
		t.Fatalf("restored plan has %d meals, want 3", app.Session().Len())
	}
	if want := (meal.Caps{Protein: 150, Carb: 200, Fat: 50}); app.Session().Caps() != want {
		t.Fatalf("caps = %+v, want %+v", app.Session().Caps(), want)
	}
	groups := app.Session().Groups()
	if len(groups) != 2 || groups[0].Record.Name != "Chicken Bowl" || groups[1].Quantity != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestDeleteAndExportSavedPlan(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Oats")
	press(app, "a")
	saved, err := app.store.Save("Wednesday", app.Session().Caps(), app.Session().Instances())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	press(app, "p")
	press(app, "y")
	data, err := os.ReadFile(filepath.Join(app.config.ExportsDir(), "plan-"+saved.ID+".yaml"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "name: Wednesday") {
		t.Fatalf("unexpected export:\n%s", data)
	}
	press(app, "d")
	if len(app.store.List()) != 0 || len(app.savedMenu.Items()) != 0 {
		t.Fatalf("plan should be deleted")
	}
	press(app, "esc")
	if app.state != statePlanner {
		t.Fatalf("esc should return to planner")
	}
}

func TestEditCapsAppliesAndPersists(t *testing.T) {
	app := newLoadedApp(t)
	press(app, "c")
	if app.state != stateEditCaps || len(app.capInputs) != 3 {
		t.Fatalf("expected caps form, state=%v", app.state)
	}
	app.capInputs[0].SetValue("abc")
	press(app, "enter")
	if app.state != stateEditCaps || !strings.Contains(app.statusMsg, "protein") {
		t.Fatalf("invalid cap should be rejected: state=%v status=%q", app.state, app.statusMsg)
	}
	app.capInputs[0].SetValue("100")
	app.capInputs[1].SetValue("")
	app.capInputs[2].SetValue("30")
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	want := meal.Caps{Protein: 100, Carb: 0, Fat: 30}
	if app.state != statePlanner || app.Session().Caps() != want {
		t.Fatalf("caps = %+v state=%v", app.Session().Caps(), app.state)
	}
	if item := findItem(t, app, "Oats"); item.candidate.Fits {
		t.Fatalf("with a zero carb cap oats should not fit")
	}
	reloaded, err := config.NewConfig(app.config.ProjectDir)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if reloaded.DefaultCaps() != want {
		t.Fatalf("persisted caps = %+v, want %+v", reloaded.DefaultCaps(), want)
	}
}

func TestParseCapsRejectsNonFiniteValues(t *testing.T) {
	tests := map[string][]string{
		"nan":          {"NaN", "253", "57"},
		"inf":          {"190", "Inf", "57"},
		"negative inf": {"190", "253", "-Inf"},
		"negative":     {"190", "253", "-1"},
		"garbage":      {"lots", "253", "57"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			if caps, err := parseCaps(capInputs(values...)); err == nil {
				t.Fatalf("expected error, got caps %+v", caps)
			}
		})
	}
	caps, err := parseCaps(capInputs("190", "", "57.5"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := (meal.Caps{Protein: 190, Carb: 0, Fat: 57.5}); caps != want {
		t.Fatalf("caps = %+v, want %+v", caps, want)
	}
}

func TestEditCapsKeepsFormOnInfinity(t *testing.T) {
	app := newLoadedApp(t)
	press(app, "c")
	app.capInputs[1].SetValue("Inf")
	press(app, "enter")
	if app.state != stateEditCaps || !strings.Contains(app.statusMsg, "carb") {
		t.Fatalf("infinite cap should be rejected: state=%v status=%q", app.state, app.statusMsg)
	}
	if app.Session().Caps() != meal.DefaultCaps {
		t.Fatalf("caps changed to %+v", app.Session().Caps())
	}
}

func TestTypeFilterCycles(t *testing.T) {
	app := newLoadedApp(t)
	press(app, "t")
	if got := titles(app); len(got) != 1 || got[0] != "Oats" {
		t.Fatalf("breakfast filter = %v", got)
	}
	press(app, "t")
	if got := titles(app); len(got) != 2 || got[0] != "Salmon" {
		t.Fatalf("dinner filter = %v", got)
	}
	press(app, "t")
	press(app, "t")
	if got := titles(app); len(got) != 4 {
		t.Fatalf("filter should wrap to all types, got %v", got)
	}
}

func TestWritePlanCSV(t *testing.T) {
	app := newLoadedApp(t)
	press(app, "w")
	if app.statusMsg != "No meals selected yet." {
		t.Fatalf("status = %q", app.statusMsg)
	}
	selectMeal(t, app, "Chicken Bowl")
	press(app, "a")
	press(app, "w")
	data, err := os.ReadFile(filepath.Join(app.config.ExportsDir(), planExportName))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(data), "TOTALS,,40,50,10,1") {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestCatalogueErrorRendersMessage(t *testing.T) {
	app := newTestApp(t, WithSource(catalogue.FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}))
	app.Update(app.Init()())
	if app.catalogueErr == "" {
		t.Fatalf("expected catalogue error")
	}
	view := app.View()
	if !strings.Contains(view, "Catalogue unavailable") {
		t.Fatalf("view missing error message:\n%s", view)
	}
	press(app, "a")
	if app.Session().Len() != 0 {
		t.Fatalf("nothing should be added without a catalogue")
	}
}

func TestViewShowsBadgesAndLog(t *testing.T) {
	app := newLoadedApp(t)
	selectMeal(t, app, "Chicken Bowl")
	press(app, "a")
	view := app.View()
	for _, want := range []string{"Protein: 40.0 / 190 (21%)", "Chicken Bowl × 1", "macroplan.log"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	press(app, "v")
	if !strings.Contains(app.View(), "Catalogue preview") {
		t.Fatalf("preview not rendered")
	}
}

func newTestApp(t *testing.T, opts ...AppOption) *App {
	t.Helper()
	for _, key := range []string{"MACROPLAN_CATALOGUE_PATH", "MACROPLAN_CATALOGUE_URL", "MACROPLAN_CACHE_TTL"} {
		t.Setenv(key, "")
	}
	projectDir := t.TempDir()
	if err := config.InitProjectDir(projectDir); err != nil {
		t.Fatalf("init project dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "Macro_Meals.csv"), []byte(testCSV), 0o644); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	baseOpts := append([]AppOption{WithLogger(logger)}, opts...)
	return NewApp(cfg, baseOpts...)
}

func newLoadedApp(t *testing.T) *App {
	t.Helper()
	app := newTestApp(t)
	app.Update(app.Init()())
	if app.catalogueErr != "" {
		t.Fatalf("catalogue failed to load: %s", app.catalogueErr)
	}
	return app
}

// press feeds a single key to the app and drops any returned command.
func press(app *App, key string) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	app.Update(msg)
}

func typeText(app *App, text string) {
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func capInputs(values ...string) []textinput.Model {
	inputs := make([]textinput.Model, len(values))
	for i, v := range values {
		inputs[i] = textinput.New()
		inputs[i].SetValue(v)
	}
	return inputs
}

func titles(app *App) []string {
	var out []string
	for _, it := range app.catalogueMenu.Items() {
		out = append(out, it.(catalogueItem).candidate.Record.Name)
	}
	return out
}

func findItem(t *testing.T, app *App, name string) catalogueItem {
	t.Helper()
	for _, it := range app.catalogueMenu.Items() {
		if item := it.(catalogueItem); item.candidate.Record.Name == name {
			return item
		}
	}
	t.Fatalf("catalogue item %q not found", name)
	return catalogueItem{}
}

func selectMeal(t *testing.T, app *App, name string) {
	t.Helper()
	for idx, it := range app.catalogueMenu.Items() {
		if it.(catalogueItem).candidate.Record.Name == name {
			app.catalogueMenu.Select(idx)
			return
		}
	}
	t.Fatalf("catalogue item %q not found", name)
}
