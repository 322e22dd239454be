// internal/tui/app.go
//
// This is the terminal UI for macroplan. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the App struct below
// 2. Update: turns key presses and async results into state changes
// 3. View: renders the state to a string
//
// All plan rules live in internal/plan and internal/planstore; this file only
// wires user actions to them.

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/macroplan/internal/catalogue"
	"github.com/kingrea/macroplan/internal/config"
	"github.com/kingrea/macroplan/internal/export"
	"github.com/kingrea/macroplan/internal/logging"
	"github.com/kingrea/macroplan/internal/meal"
	"github.com/kingrea/macroplan/internal/plan"
	"github.com/kingrea/macroplan/internal/planstore"
)

// appState represents which "screen" we're on
type appState int

const (
	statePlanner    appState = iota // Catalogue on the left, plan on the right
	stateSaveName                   // Prompting for a plan name
	stateSavedPlans                 // Browsing saved plans
	stateEditCaps                   // Editing the macro caps
	statePreview                    // Full catalogue table
)

type paneFocus int

const (
	focusCatalogue paneFocus = iota
	focusPlan
)

const planExportName = "meal_plan.csv"

type catalogueLoadedMsg struct {
	catalogue catalogue.Catalogue
	err       error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithSource overrides the catalogue source derived from config.
func WithSource(src catalogue.Source) AppOption {
	return func(a *App) {
		if src != nil {
			a.source = src
		}
	}
}

// WithStore overrides the saved-plan store derived from config.
func WithStore(store *planstore.Store) AppOption {
	return func(a *App) {
		if store != nil {
			a.store = store
		}
	}
}

// WithLogger attaches the application logger.
func WithLogger(l *logging.Logger) AppOption {
	return func(a *App) {
		a.logger = l
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state  appState
	focus  paneFocus
	config *config.Config
	logger *logging.Logger

	source  catalogue.Source
	store   *planstore.Store
	session *plan.Session

	catalogue    catalogue.Catalogue
	catalogueErr string
	loading      bool
	typeFilter   int // 0 shows every type, n shows catalogue.Types()[n-1]

	catalogueMenu list.Model
	savedMenu     list.Model
	nameInput     textinput.Model
	capInputs     []textinput.Model
	capFocus      int
	bars          []progress.Model
	planCursor    int

	statusMsg string

	width  int
	height int
}

// NewApp creates the planner for cfg. The session starts empty with the
// configured default caps.
func NewApp(cfg *config.Config, opts ...AppOption) *App {
	catalogueMenu := list.New(nil, list.NewDefaultDelegate(), 60, 20)
	catalogueMenu.Title = "Available meals"
	catalogueMenu.SetShowStatusBar(false)
	catalogueMenu.SetFilteringEnabled(false)
	catalogueMenu.SetShowHelp(false)

	savedMenu := list.New(nil, list.NewDefaultDelegate(), 60, 20)
	savedMenu.Title = "Saved plans"
	savedMenu.SetShowStatusBar(false)
	savedMenu.SetFilteringEnabled(false)
	savedMenu.SetShowHelp(false)

	nameInput := textinput.New()
	nameInput.Placeholder = "e.g. Monday"
	nameInput.CharLimit = 80

	bars := make([]progress.Model, 3)
	for i := range bars {
		bars[i] = progress.New(progress.WithDefaultGradient(), progress.WithWidth(28))
	}

	app := &App{
		state:         statePlanner,
		focus:         focusCatalogue,
		config:        cfg,
		session:       plan.NewSession(cfg.DefaultCaps()),
		catalogueMenu: catalogueMenu,
		savedMenu:     savedMenu,
		nameInput:     nameInput,
		bars:          bars,
		width:         100,
		height:        30,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.source == nil {
		app.source = sourceFromConfig(cfg)
	}
	if app.store == nil {
		app.store = planstore.New(cfg.StorePath(), planstore.WithLogger(app.logger))
	}
	app.resize()
	app.logInfo("Session opened · catalogue: %s", app.source.Describe())
	return app
}

func sourceFromConfig(cfg *config.Config) catalogue.Source {
	settings := cfg.Catalogue()
	if settings.Source == config.SourceRemote {
		return catalogue.NewRemoteSource(settings.URL, settings.CacheTTL)
	}
	return catalogue.FileSource{Path: settings.Path}
}

// Session exposes the active plan.
func (a *App) Session() *plan.Session {
	return a.session
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.loadCatalogue()
}

func (a *App) loadCatalogue() tea.Cmd {
	a.loading = true
	src := a.source
	return func() tea.Msg {
		cat, err := src.Fetch(context.Background())
		return catalogueLoadedMsg{catalogue: cat, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case catalogueLoadedMsg:
		a.loading = false
		if msg.err != nil {
			a.catalogueErr = msg.err.Error()
			a.statusMsg = "Catalogue could not be loaded"
			a.logError("Catalogue load failed: %v", msg.err)
			return a, nil
		}
		a.catalogueErr = ""
		a.catalogue = msg.catalogue
		if a.typeFilter > len(a.catalogue.Types()) {
			a.typeFilter = 0
		}
		a.refreshCatalogue()
		a.logInfo("Catalogue loaded · %d meal(s)", a.catalogue.Len())
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.state {
		case stateSaveName:
			return a.updateSaveName(msg)
		case stateSavedPlans:
			return a.updateSavedPlans(msg)
		case stateEditCaps:
			return a.updateEditCaps(msg)
		case statePreview:
			switch msg.String() {
			case "esc", "v", "q":
				a.state = statePlanner
			}
			return a, nil
		default:
			return a.updatePlanner(msg)
		}
	}
	return a, nil
}

func (a *App) updatePlanner(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "esc":
		return a, nil
	case "tab":
		if a.focus == focusCatalogue {
			a.focus = focusPlan
		} else {
			a.focus = focusCatalogue
		}
		return a, nil
	case "t":
		a.cycleTypeFilter()
		return a, nil
	case "x":
		a.resetPlan()
		return a, nil
	case "s":
		return a.beginSave()
	case "p":
		return a.openSavedPlans()
	case "c":
		return a.beginEditCaps()
	case "w":
		a.writePlanCSV()
		return a, nil
	case "v":
		a.state = statePreview
		return a, nil
	case "r":
		if remote, ok := a.source.(*catalogue.RemoteSource); ok {
			remote.Invalidate()
		}
		a.statusMsg = "Reloading catalogue..."
		return a, a.loadCatalogue()
	}

	if a.focus == focusPlan {
		switch msg.String() {
		case "up", "k":
			if a.planCursor > 0 {
				a.planCursor--
			}
		case "down", "j":
			if a.planCursor < len(a.session.Groups())-1 {
				a.planCursor++
			}
		case "+", "=", "enter":
			a.incrementSelected()
		case "-", "backspace", "delete":
			a.decrementSelected()
		}
		return a, nil
	}

	switch msg.String() {
	case "enter", "a", "+":
		a.addSelected()
		return a, nil
	}
	var cmd tea.Cmd
	a.catalogueMenu, cmd = a.catalogueMenu.Update(msg)
	return a, cmd
}

// refreshCatalogue re-evaluates every visible catalogue entry against the
// remaining capacity. Infeasible entries stay listed but flagged.
func (a *App) refreshCatalogue() {
	view := a.visibleCatalogue()
	candidates := plan.Candidates(view.Records(), a.session.Remaining())
	entries := catalogueItems(view.Entries, candidates)
	items := make([]list.Item, len(entries))
	for i := range entries {
		items[i] = entries[i]
	}
	idx := a.catalogueMenu.Index()
	a.catalogueMenu.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		a.catalogueMenu.Select(idx)
	}
	if groups := a.session.Groups(); a.planCursor >= len(groups) {
		a.planCursor = max(0, len(groups)-1)
	}
}

func (a *App) visibleCatalogue() catalogue.Catalogue {
	var selected []string
	if t := a.activeType(); t != "" {
		selected = []string{t}
	}
	return a.catalogue.Filter(selected).Sorted()
}

func (a *App) activeType() string {
	types := a.catalogue.Types()
	if a.typeFilter <= 0 || a.typeFilter > len(types) {
		return ""
	}
	return types[a.typeFilter-1]
}

func (a *App) cycleTypeFilter() {
	types := a.catalogue.Types()
	if len(types) == 0 {
		a.typeFilter = 0
		return
	}
	a.typeFilter = (a.typeFilter + 1) % (len(types) + 1)
	a.catalogueMenu.Select(0)
	a.refreshCatalogue()
	if t := a.activeType(); t != "" {
		a.statusMsg = fmt.Sprintf("Showing %s meals", t)
	} else {
		a.statusMsg = "Showing all meal types"
	}
}

func (a *App) addSelected() {
	item, ok := a.catalogueMenu.SelectedItem().(catalogueItem)
	if !ok {
		return
	}
	record := item.candidate.Record
	if !plan.Fits(record, a.session.Remaining()) {
		a.statusMsg = fmt.Sprintf("%s would exceed your remaining caps", record.Name)
		return
	}
	a.session.Add(record)
	a.statusMsg = fmt.Sprintf("Added %s", record.Name)
	a.logInfo("Plan · added %s", record)
	a.refreshCatalogue()
}

func (a *App) selectedGroup() (plan.Group, bool) {
	groups := a.session.Groups()
	if a.planCursor < 0 || a.planCursor >= len(groups) {
		return plan.Group{}, false
	}
	return groups[a.planCursor], true
}

func (a *App) incrementSelected() {
	group, ok := a.selectedGroup()
	if !ok {
		return
	}
	if !plan.Fits(group.Record, a.session.Remaining()) {
		a.statusMsg = fmt.Sprintf("Another %s would exceed your remaining caps", group.Record.Name)
		return
	}
	a.session.Add(group.Record)
	a.statusMsg = fmt.Sprintf("%s × %d", group.Record.Name, group.Quantity+1)
	a.logInfo("Plan · added %s", group.Record)
	a.refreshCatalogue()
}

func (a *App) decrementSelected() {
	group, ok := a.selectedGroup()
	if !ok {
		return
	}
	if !a.session.RemoveOne(group.Record) {
		return
	}
	if group.Quantity > 1 {
		a.statusMsg = fmt.Sprintf("%s × %d", group.Record.Name, group.Quantity-1)
	} else {
		a.statusMsg = fmt.Sprintf("Removed %s", group.Record.Name)
	}
	a.logInfo("Plan · removed %s", group.Record)
	a.refreshCatalogue()
}

func (a *App) resetPlan() {
	a.session.Reset()
	a.planCursor = 0
	a.statusMsg = "Plan reset"
	a.logInfo("Plan · reset")
	a.refreshCatalogue()
}

func (a *App) writePlanCSV() {
	if a.session.Len() == 0 {
		a.statusMsg = "No meals selected yet."
		return
	}
	dir := a.config.ExportsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	path := filepath.Join(dir, planExportName)
	f, err := os.Create(path)
	if err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	if err := export.WritePlanCSV(f, a.session.Instances()); err != nil {
		f.Close()
		a.warn("Could not export plan: %v", err)
		return
	}
	if err := f.Close(); err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	a.statusMsg = fmt.Sprintf("Plan written to %s", path)
	a.logInfo("Export · plan CSV %s", path)
}

func (a *App) beginSave() (tea.Model, tea.Cmd) {
	if a.session.Len() == 0 {
		a.statusMsg = "No meals selected yet."
		return a, nil
	}
	a.state = stateSaveName
	a.nameInput.SetValue("")
	a.statusMsg = "Name this plan"
	return a, a.nameInput.Focus()
}

func (a *App) updateSaveName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.nameInput.Blur()
		a.state = statePlanner
		a.statusMsg = "Save cancelled"
		return a, nil
	case "enter":
		a.savePlan(a.nameInput.Value())
		return a, nil
	}
	var cmd tea.Cmd
	a.nameInput, cmd = a.nameInput.Update(msg)
	return a, cmd
}

func (a *App) savePlan(name string) {
	saved, err := a.store.Save(name, a.session.Caps(), a.session.Instances())
	if err != nil {
		if errors.Is(err, planstore.ErrValidation) {
			a.statusMsg = "Plan name is required"
			return
		}
		a.warn("Could not save plan: %v", err)
		return
	}
	a.nameInput.Blur()
	a.state = statePlanner
	a.statusMsg = fmt.Sprintf("Saved plan %q", saved.Name)
	a.logInfo("Store · saved %q (%s, %d meal(s))", saved.Name, saved.ID, len(saved.Meals))
}

func (a *App) openSavedPlans() (tea.Model, tea.Cmd) {
	a.state = stateSavedPlans
	a.refreshSavedPlans()
	if len(a.savedMenu.Items()) == 0 {
		a.statusMsg = "No saved plans yet"
	} else {
		a.statusMsg = "Enter → load    d → delete    e → export JSON    y → export YAML    Esc → back"
	}
	return a, nil
}

func (a *App) refreshSavedPlans() {
	plans := a.store.List()
	items := make([]list.Item, len(plans))
	for i := range plans {
		items[i] = savedPlanItem{plan: plans[i]}
	}
	idx := a.savedMenu.Index()
	a.savedMenu.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		a.savedMenu.Select(idx)
	}
}

func (a *App) updateSavedPlans(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.state = statePlanner
		a.statusMsg = ""
		return a, nil
	case "enter":
		a.loadSelectedPlan()
		return a, nil
	case "d":
		a.deleteSelectedPlan()
		return a, nil
	case "e":
		a.exportSelectedPlan(export.FormatJSON)
		return a, nil
	case "y":
		a.exportSelectedPlan(export.FormatYAML)
		return a, nil
	}
	var cmd tea.Cmd
	a.savedMenu, cmd = a.savedMenu.Update(msg)
	return a, cmd
}

func (a *App) selectedSavedPlan() (planstore.SavedPlan, bool) {
	item, ok := a.savedMenu.SelectedItem().(savedPlanItem)
	if !ok {
		return planstore.SavedPlan{}, false
	}
	return item.plan, true
}

func (a *App) loadSelectedPlan() {
	selected, ok := a.selectedSavedPlan()
	if !ok {
		return
	}
	loaded, err := a.store.Load(selected.ID)
	if err != nil {
		if errors.Is(err, planstore.ErrNotFound) {
			a.statusMsg = fmt.Sprintf("Plan %q no longer exists", selected.Name)
			a.refreshSavedPlans()
			return
		}
		a.warn("Could not load plan: %v", err)
		return
	}
	a.session.Restore(loaded.Caps, loaded.Meals)
	a.planCursor = 0
	a.state = statePlanner
	a.refreshCatalogue()
	a.statusMsg = fmt.Sprintf("Loaded plan %q", loaded.Name)
	a.logInfo("Store · loaded %q (%s)", loaded.Name, loaded.ID)
}

func (a *App) deleteSelectedPlan() {
	selected, ok := a.selectedSavedPlan()
	if !ok {
		return
	}
	if err := a.store.Delete(selected.ID); err != nil {
		a.warn("Could not delete plan: %v", err)
		return
	}
	a.refreshSavedPlans()
	a.statusMsg = fmt.Sprintf("Deleted plan %q", selected.Name)
	a.logInfo("Store · deleted %q (%s)", selected.Name, selected.ID)
}

func (a *App) exportSelectedPlan(format export.Format) {
	selected, ok := a.selectedSavedPlan()
	if !ok {
		return
	}
	dir := a.config.ExportsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("plan-%s.%s", selected.ID, format))
	f, err := os.Create(path)
	if err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	if err := export.WriteSavedPlan(f, selected, format); err != nil {
		f.Close()
		a.warn("Could not export plan: %v", err)
		return
	}
	if err := f.Close(); err != nil {
		a.warn("Could not export plan: %v", err)
		return
	}
	a.statusMsg = fmt.Sprintf("Exported %q to %s", selected.Name, path)
	a.logInfo("Export · saved plan %s", path)
}

func (a *App) beginEditCaps() (tea.Model, tea.Cmd) {
	caps := a.session.Caps()
	values := []float64{caps.Protein, caps.Carb, caps.Fat}
	labels := []string{"Max protein (g)", "Max carbs (g)", "Max fat (g)"}
	a.capInputs = make([]textinput.Model, len(values))
	for i, v := range values {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("%-16s ", labels[i])
		in.CharLimit = 8
		in.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
		a.capInputs[i] = in
	}
	a.capFocus = 0
	a.state = stateEditCaps
	a.statusMsg = "Tab → next field    Enter → apply    Ctrl+S → apply and keep as default    Esc → cancel"
	return a, a.capInputs[0].Focus()
}

func (a *App) updateEditCaps(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.state = statePlanner
		a.statusMsg = "Caps unchanged"
		return a, nil
	case "tab", "down":
		return a, a.focusCapInput(a.capFocus + 1)
	case "shift+tab", "up":
		return a, a.focusCapInput(a.capFocus - 1)
	case "enter":
		a.applyCaps(false)
		return a, nil
	case "ctrl+s":
		a.applyCaps(true)
		return a, nil
	}
	var cmd tea.Cmd
	a.capInputs[a.capFocus], cmd = a.capInputs[a.capFocus].Update(msg)
	return a, cmd
}

func (a *App) focusCapInput(idx int) tea.Cmd {
	n := len(a.capInputs)
	if n == 0 {
		return nil
	}
	idx = ((idx % n) + n) % n
	a.capInputs[a.capFocus].Blur()
	a.capFocus = idx
	return a.capInputs[idx].Focus()
}

func (a *App) applyCaps(persist bool) {
	caps, err := parseCaps(a.capInputs)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.session.SetCaps(caps)
	a.state = statePlanner
	a.refreshCatalogue()
	a.statusMsg = "Caps updated"
	a.logInfo("Caps · P %.0f C %.0f F %.0f", caps.Protein, caps.Carb, caps.Fat)
	if persist {
		if err := a.config.SetDefaultCaps(caps); err != nil {
			a.warn("Could not save default caps: %v", err)
			return
		}
		a.statusMsg = "Caps updated and saved as default"
	}
}

func parseCaps(inputs []textinput.Model) (meal.Caps, error) {
	if len(inputs) != 3 {
		return meal.Caps{}, fmt.Errorf("caps form is incomplete")
	}
	names := []string{"protein", "carb", "fat"}
	values := make([]float64, 3)
	for i, in := range inputs {
		raw := strings.TrimSpace(in.Value())
		if raw == "" {
			raw = "0"
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !meal.ValidGrams(v) {
			return meal.Caps{}, fmt.Errorf("%s cap must be a finite number >= 0", names[i])
		}
		values[i] = v
	}
	return meal.Caps{Protein: values[0], Carb: values[1], Fat: values[2]}, nil
}

func (a *App) warn(format string, args ...any) {
	a.statusMsg = "⚠ " + fmt.Sprintf(format, args...)
	a.logWarn(format, args...)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Infof(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Warnf(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Errorf(format, args...)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
