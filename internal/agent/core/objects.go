package core

import (
	"fmt"
	"sort"
	"strings"
)

// Summarize digests a session object set into counts by layer and type.
// An empty or nil set yields zero counts, never an error.
func Summarize(set SessionObjectSet) ObjectSummary {
	summary := ObjectSummary{
		Total:   len(set),
		ByLayer: make(map[string]int),
		ByType:  make(map[string]int),
	}
	for _, obj := range set {
		layer := obj.Layer
		if layer == "" {
			layer = "UNKNOWN"
		}
		typ := obj.Type
		if typ == "" {
			typ = "UNKNOWN"
		}
		summary.ByLayer[layer]++
		summary.ByType[typ]++
	}
	return summary
}

// Evaluate runs the plan's predicate against the session object set. It is
// pure, synchronous and deterministic: matched ids are sorted, and layer and
// type comparisons are case-insensitive exact matches.
func Evaluate(set SessionObjectSet, plan Plan) []ObjectCheck {
	if !plan.NeedsObjects() {
		return nil
	}

	var check ObjectCheck
	switch plan.Predicate {
	case PredicateCountByLayer:
		ids := matchIDs(set, func(o ObjectRecord) bool { return strings.EqualFold(o.Layer, plan.LayerTarget) })
		check = ObjectCheck{
			Predicate:  fmt.Sprintf("count(layer=%s)", plan.LayerTarget),
			Result:     len(ids) > 0,
			Count:      len(ids),
			MatchedIDs: ids,
		}
	case PredicateCountByType:
		ids := matchIDs(set, func(o ObjectRecord) bool { return strings.EqualFold(o.Type, plan.TypeTarget) })
		check = ObjectCheck{
			Predicate:  fmt.Sprintf("count(type=%s)", plan.TypeTarget),
			Result:     len(ids) > 0,
			Count:      len(ids),
			MatchedIDs: ids,
		}
	case PredicateExistsLayer:
		ids := matchIDs(set, func(o ObjectRecord) bool { return strings.EqualFold(o.Layer, plan.LayerTarget) })
		check = ObjectCheck{
			Predicate:  fmt.Sprintf("exists(layer=%s)", plan.LayerTarget),
			Result:     len(ids) > 0,
			Count:      len(ids),
			MatchedIDs: ids,
		}
	case PredicateExistsType:
		ids := matchIDs(set, func(o ObjectRecord) bool { return strings.EqualFold(o.Type, plan.TypeTarget) })
		check = ObjectCheck{
			Predicate:  fmt.Sprintf("exists(type=%s)", plan.TypeTarget),
			Result:     len(ids) > 0,
			Count:      len(ids),
			MatchedIDs: ids,
		}
	default: // PredicateCountAll
		ids := matchIDs(set, func(ObjectRecord) bool { return true })
		check = ObjectCheck{
			Predicate:  "count(all)",
			Result:     len(ids) > 0,
			Count:      len(ids),
			MatchedIDs: ids,
		}
	}
	return []ObjectCheck{check}
}

func matchIDs(set SessionObjectSet, match func(ObjectRecord) bool) []string {
	ids := make([]string, 0, len(set))
	for id, obj := range set {
		if match(obj) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
