// Package kcgraph provides pure functions over the prerequisite DAG of
// knowledge components. The edge lists come from the persistence port;
// nothing here touches storage or holds state.
package kcgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/skilltrace/internal/store"
)

// Unlocked reports whether every required prerequisite edge points at a
// mastered KC. Optional edges never block.
func Unlocked(edges []*store.Prerequisite, mastered map[store.ID]bool) bool {
	for _, e := range edges {
		if e.Required && !mastered[e.PrereqID] {
			return false
		}
	}
	return true
}

// MissingPrerequisites returns the required prerequisite IDs that are
// not yet mastered, sorted for determinism.
func MissingPrerequisites(edges []*store.Prerequisite, mastered map[store.ID]bool) []store.ID {
	var missing []store.ID
	for _, e := range edges {
		if e.Required && !mastered[e.PrereqID] {
			missing = append(missing, e.PrereqID)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// TopoOrder returns the KC IDs in topological order (Kahn's algorithm)
// given the full edge set. Ties break alphabetically so the order is
// deterministic. Returns an error if the graph has a cycle.
func TopoOrder(kcs []*store.KnowledgeComponent, edges []*store.Prerequisite) ([]store.ID, error) {
	inDegree := make(map[store.ID]int, len(kcs))
	dependents := make(map[store.ID][]store.ID)
	for _, kc := range kcs {
		inDegree[kc.ID] = 0
	}
	for _, e := range edges {
		inDegree[e.KCID]++
		dependents[e.PrereqID] = append(dependents[e.PrereqID], e.KCID)
	}

	var queue []store.ID
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	var order []store.ID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		deps := append([]store.ID(nil), dependents[id]...)
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) < len(kcs) {
		var cycle []string
		for id, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, string(id))
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("prerequisite cycle involving: %s", strings.Join(cycle, ", "))
	}
	return order, nil
}

// Validate performs structural checks on a curriculum: duplicate IDs,
// dangling prerequisite references, and cycles. Returns a combined
// error describing all problems found, or nil if valid.
func Validate(kcs []*store.KnowledgeComponent, edges []*store.Prerequisite) error {
	var errs []string

	idSet := make(map[store.ID]bool, len(kcs))
	for _, kc := range kcs {
		if idSet[kc.ID] {
			errs = append(errs, fmt.Sprintf("duplicate kc ID: %q", kc.ID))
		}
		idSet[kc.ID] = true
	}

	for _, e := range edges {
		if !idSet[e.KCID] {
			errs = append(errs, fmt.Sprintf("edge references nonexistent kc %q", e.KCID))
		}
		if !idSet[e.PrereqID] {
			errs = append(errs, fmt.Sprintf("kc %q references nonexistent prerequisite %q", e.KCID, e.PrereqID))
		}
	}

	if _, err := TopoOrder(kcs, edges); err != nil {
		errs = append(errs, err.Error())
	}

	hasRoot := false
	prereqCount := make(map[store.ID]int)
	for _, e := range edges {
		prereqCount[e.KCID]++
	}
	for _, kc := range kcs {
		if prereqCount[kc.ID] == 0 {
			hasRoot = true
			break
		}
	}
	if len(kcs) > 0 && !hasRoot {
		errs = append(errs, "no root kcs found (at least one kc must have no prerequisites)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("curriculum validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
