package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/macroplan/internal/plan"
)

const previewRowLimit = 200

var (
	borderColor = lipgloss.Color("#444444")
	accentColor = lipgloss.Color("#5B8DEF")
	mutedColor  = lipgloss.Color("#888888")
	warnColor   = lipgloss.Color("#FF6B6B")
)

func (a *App) resize() {
	leftWidth, rightWidth := a.paneWidths()
	listHeight := max(8, a.height-14)
	a.catalogueMenu.SetSize(max(20, leftWidth-4), listHeight)
	a.savedMenu.SetSize(max(20, leftWidth-4), listHeight)
	barWidth := max(10, rightWidth-6)
	for i := range a.bars {
		a.bars[i].Width = barWidth
	}
}

func (a *App) paneWidths() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(36, width*2/5)
	leftWidth := width - rightWidth - 4
	if leftWidth < 30 {
		leftWidth = width - 4
		rightWidth = 0
	}
	return leftWidth, rightWidth
}

// View renders the current state to a string.
func (a *App) View() string {
	leftWidth, rightWidth := a.paneWidths()
	var left string
	switch a.state {
	case stateSaveName:
		left = a.renderSavePrompt()
	case stateSavedPlans:
		left = a.savedMenu.View()
	case stateEditCaps:
		left = a.renderCapsForm()
	case statePreview:
		left = a.renderPreview(leftWidth - 4)
	default:
		left = a.renderCataloguePane()
	}
	return a.renderBoard(left, leftWidth, rightWidth)
}

func (a *App) renderBoard(mainContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(warnColor).
		MarginBottom(1).
		Render("◆ MACROPLAN")
	leftBox := panelStyle(a.state == statePlanner && a.focus == focusCatalogue).
		Width(max(20, leftWidth)).
		Render(mainContent)
	body := leftBox
	if rightWidth > 0 {
		rightBox := panelStyle(a.state == statePlanner && a.focus == focusPlan).
			Width(max(20, rightWidth)).
			Render(a.renderPlanPane(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(mutedColor).
		MarginTop(1).
		Render(a.footer())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func panelStyle(focused bool) lipgloss.Style {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)
	if focused {
		style = style.BorderForeground(accentColor)
	}
	return style
}

func (a *App) footer() string {
	var hint string
	switch a.state {
	case statePlanner:
		hint = "Tab focus · Enter add · +/- quantity · t type · s save · p plans · c caps · w csv · v preview · x reset · q quit"
	case stateSaveName:
		hint = "Enter save · Esc cancel"
	case stateSavedPlans:
		hint = "Enter load · d delete · e json · y yaml · Esc back"
	case stateEditCaps:
		hint = "Tab next · Enter apply · Ctrl+S apply and save default · Esc cancel"
	case statePreview:
		hint = "Esc back"
	}
	if a.statusMsg == "" {
		return hint
	}
	return a.statusMsg + "\n" + hint
}

func (a *App) renderCataloguePane() string {
	if a.loading && a.catalogue.Len() == 0 {
		return "Loading catalogue..."
	}
	if a.catalogueErr != "" {
		msg := lipgloss.NewStyle().Foreground(warnColor).Render("Catalogue unavailable")
		detail := lipgloss.NewStyle().Foreground(mutedColor).Render(a.catalogueErr)
		return lipgloss.JoinVertical(lipgloss.Left, msg, detail, "", "Press r to retry.")
	}
	filter := "All types"
	if t := a.activeType(); t != "" {
		filter = t
	}
	title := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render(fmt.Sprintf("Filter: %s (t to change)", filter))
	if len(a.catalogueMenu.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", "No meals in the catalogue.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, a.catalogueMenu.View())
}

func (a *App) renderPlanPane(width int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render("TODAY'S PLAN")

	totals := a.session.Totals()
	caps := a.session.Caps()
	rows := []struct {
		label       string
		used, limit float64
	}{
		{"Protein", totals.Protein, caps.Protein},
		{"Carbs", totals.Carb, caps.Carb},
		{"Fat", totals.Fat, caps.Fat},
	}
	lines := []string{title, ""}
	for i, row := range rows {
		lines = append(lines, plan.Badge(row.label, row.used, row.limit))
		if i < len(a.bars) {
			lines = append(lines, a.bars[i].ViewAs(plan.Fraction(row.used, row.limit)))
		}
	}
	lines = append(lines, "")

	groups := a.session.Groups()
	if len(groups) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).Render("No meals selected yet."))
		return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
	}
	for idx, g := range groups {
		m := g.Macros()
		row := fmt.Sprintf("%s × %d  (P %.1f · C %.1f · F %.1f)", g.Record.Name, g.Quantity, m.Protein, m.Carb, m.Fat)
		if a.focus == focusPlan && idx == a.planCursor {
			row = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("› " + row)
		} else {
			row = "  " + row
		}
		lines = append(lines, row)
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderSavePrompt() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Save plan")
	summary := fmt.Sprintf("%d meal(s) in the current plan", a.session.Len())
	return lipgloss.JoinVertical(lipgloss.Left, title, summary, "", a.nameInput.View())
}

func (a *App) renderCapsForm() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Macro caps")
	lines := []string{title, ""}
	for _, in := range a.capInputs {
		lines = append(lines, in.View())
	}
	return strings.Join(lines, "\n")
}

// renderPreview shows the full catalogue, unfiltered, in source order.
func (a *App) renderPreview(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Catalogue preview")
	if a.catalogue.Len() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", "No meals in the catalogue.")
	}
	nameWidth := max(12, width-44)
	header := fmt.Sprintf("%-*s %-12s %8s %8s %8s", nameWidth, "Meal name", "Meal type", "Protein", "Carb", "Fat")
	lines := []string{title, "", lipgloss.NewStyle().Foreground(mutedColor).Render(header)}
	for i, entry := range a.catalogue.Entries {
		if i == previewRowLimit {
			lines = append(lines, fmt.Sprintf("... %d more", a.catalogue.Len()-previewRowLimit))
			break
		}
		r := entry.Record
		lines = append(lines, fmt.Sprintf("%-*s %-12s %8.1f %8.1f %8.1f",
			nameWidth, truncate(r.Name, nameWidth), truncate(displayType(r.Type), 12), r.Protein, r.Carb, r.Fat))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logger == nil {
		return ""
	}
	lines := a.logger.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logger.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
