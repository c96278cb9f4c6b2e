package core

import (
	"reflect"
	"testing"
)

func sampleSet() SessionObjectSet {
	return SessionObjectSet{
		"a": {ID: "a", Type: "LINE", Layer: "Highway"},
		"b": {ID: "b", Type: "POLYLINE", Layer: "windows"},
		"c": {ID: "c", Type: "LINE", Layer: "Windows"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleSet())
	if s.Total != 3 {
		t.Fatalf("total = %d, want 3", s.Total)
	}
	if s.ByType["LINE"] != 2 || s.ByType["POLYLINE"] != 1 {
		t.Fatalf("by_type = %v", s.ByType)
	}
	// Summaries preserve the stored casing; matching happens in Evaluate.
	if s.ByLayer["Windows"] != 1 || s.ByLayer["windows"] != 1 {
		t.Fatalf("by_layer = %v", s.ByLayer)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || len(s.ByLayer) != 0 || len(s.ByType) != 0 {
		t.Fatalf("empty summary = %+v", s)
	}
}

func TestEvaluateCountAllMatchesCardinality(t *testing.T) {
	set := sampleSet()
	checks := Evaluate(set, Plan{Strategy: StrategyObjectsOnly, Predicate: PredicateCountAll})
	if len(checks) != 1 {
		t.Fatalf("checks = %d, want 1", len(checks))
	}
	if checks[0].Count != len(set) {
		t.Fatalf("count(all) = %d, want %d", checks[0].Count, len(set))
	}
	if got := checks[0].MatchedIDs; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("matched ids = %v, want sorted a,b,c", got)
	}
}

func TestEvaluateLayerCaseInsensitive(t *testing.T) {
	checks := Evaluate(sampleSet(), Plan{
		Strategy:    StrategyObjectsOnly,
		Predicate:   PredicateCountByLayer,
		LayerTarget: "WINDOWS",
	})
	if checks[0].Count != 2 {
		t.Fatalf("count(layer=WINDOWS) = %d, want 2", checks[0].Count)
	}
	if checks[0].Predicate != "count(layer=WINDOWS)" {
		t.Fatalf("predicate label = %q", checks[0].Predicate)
	}
}

func TestEvaluateExists(t *testing.T) {
	set := sampleSet()

	checks := Evaluate(set, Plan{Strategy: StrategyObjectsOnly, Predicate: PredicateExistsLayer, LayerTarget: "highway"})
	if !checks[0].Result {
		t.Fatal("exists(layer=highway) = false, want true")
	}

	checks = Evaluate(set, Plan{Strategy: StrategyObjectsOnly, Predicate: PredicateExistsType, TypeTarget: "CIRCLE"})
	if checks[0].Result {
		t.Fatal("exists(type=CIRCLE) = true, want false")
	}
}

func TestEvaluateEmptySet(t *testing.T) {
	for _, pred := range []PredicateKind{
		PredicateCountAll, PredicateCountByLayer, PredicateCountByType,
		PredicateExistsLayer, PredicateExistsType,
	} {
		checks := Evaluate(SessionObjectSet{}, Plan{
			Strategy:    StrategyObjectsOnly,
			Predicate:   pred,
			LayerTarget: "Windows",
			TypeTarget:  "LINE",
		})
		if len(checks) != 1 {
			t.Fatalf("%s: checks = %d, want 1", pred, len(checks))
		}
		if checks[0].Count != 0 || checks[0].Result {
			t.Fatalf("%s on empty set: %+v", pred, checks[0])
		}
	}
}

func TestEvaluateDocumentsOnlySkipped(t *testing.T) {
	if checks := Evaluate(sampleSet(), Plan{Strategy: StrategyDocumentsOnly}); checks != nil {
		t.Fatalf("documents-only plan evaluated objects: %v", checks)
	}
}
