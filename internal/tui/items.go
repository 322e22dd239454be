package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/macroplan/internal/catalogue"
	"github.com/kingrea/macroplan/internal/plan"
	"github.com/kingrea/macroplan/internal/planstore"
)

// catalogueItem implements list.Item for one catalogue row.
type catalogueItem struct {
	candidate plan.Candidate
	extra     map[string]string
}

func (i catalogueItem) Title() string {
	if !i.candidate.Fits {
		return fmt.Sprintf("%s  ✗ over cap", i.candidate.Record.Name)
	}
	return i.candidate.Record.Name
}

func (i catalogueItem) Description() string {
	r := i.candidate.Record
	desc := fmt.Sprintf("%s · P %.1f g · C %.1f g · F %.1f g", displayType(r.Type), r.Protein, r.Carb, r.Fat)
	if len(i.extra) > 0 {
		var parts []string
		for _, key := range sortedKeys(i.extra) {
			if v := strings.TrimSpace(i.extra[key]); v != "" {
				parts = append(parts, fmt.Sprintf("%s %s", key, v))
			}
		}
		if len(parts) > 0 {
			desc += " · " + strings.Join(parts, " · ")
		}
	}
	return desc
}

func (i catalogueItem) FilterValue() string { return i.candidate.Record.Name }

// savedPlanItem implements list.Item for one saved plan.
type savedPlanItem struct {
	plan planstore.SavedPlan
}

func (i savedPlanItem) Title() string { return i.plan.Name }

func (i savedPlanItem) Description() string {
	var p, c, f float64
	for _, m := range i.plan.Meals {
		p += m.Protein
		c += m.Carb
		f += m.Fat
	}
	return fmt.Sprintf("%s · %d meal(s) · P %.1f · C %.1f · F %.1f",
		i.plan.CreatedAt.Local().Format("2006-01-02 15:04"), len(i.plan.Meals), p, c, f)
}

func (i savedPlanItem) FilterValue() string { return i.plan.Name }

func catalogueItems(entries []catalogue.Entry, candidates []plan.Candidate) []catalogueItem {
	items := make([]catalogueItem, 0, len(candidates))
	for idx, c := range candidates {
		item := catalogueItem{candidate: c}
		if idx < len(entries) {
			item.extra = entries[idx].Extra
		}
		items = append(items, item)
	}
	return items
}

func displayType(t string) string {
	if strings.TrimSpace(t) == "" {
		return "Untyped"
	}
	return t
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
