package plan

import "github.com/kingrea/macroplan/internal/meal"

// Group is one distinct record in the plan with the number of instances of
// it. Record doubles as the handle for increment (Session.Add) and decrement
// (Session.RemoveOne).
type Group struct {
	Record   meal.Record
	Quantity int
}

// Macros returns the group's combined macros, computed exactly like the
// session totals.
func (g Group) Macros() meal.Macros {
	return zeroMacros().addTimes(g.Record, g.Quantity).float()
}

// GroupInstances groups instances by identical record. Groups are emitted in
// the order each record first appears.
func GroupInstances(instances []meal.Instance) []Group {
	index := make(map[meal.Record]int, len(instances))
	var groups []Group
	for _, inst := range instances {
		if pos, ok := index[inst.Record]; ok {
			groups[pos].Quantity++
			continue
		}
		index[inst.Record] = len(groups)
		groups = append(groups, Group{Record: inst.Record, Quantity: 1})
	}
	return groups
}
