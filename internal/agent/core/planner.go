package core

import (
	"regexp"
	"strings"
)

// Question intent signals (EN+TR, carried over from the ingested corpus's
// bilingual documents).
var (
	pageRe   = regexp.MustCompile(`(?i)\b(?:page|p\.?|sayfa)\s*#?\s*(\d{1,3})\b`)
	visualRe = regexp.MustCompile(`(?i)\b(diagram|figure|table|chart|flowchart|illustration|şekil|tablo)\b`)

	objIntentRe = regexp.MustCompile(`(?i)\b(object|objects|layer|katman|type|tip|polyline|line|window|windows|highway|kaç|adet|nesne|obje)\b`)
	docRuleRe   = regexp.MustCompile(`(?i)\b(explain|restriction|means|rule|measured|measure|how to|what is|define|definition|nedir|açıkla|tanım|ölç|kural|kısıt)\b`)
	countRe     = regexp.MustCompile(`(?i)\b(how many|kaç|adet)\b`)

	layerTargetRe = regexp.MustCompile(`(?i)\b(?:layer|katman)\s*[:=]?\s*([A-Za-z0-9_\- ]{2,40})\b`)
	typeTargetRe  = regexp.MustCompile(`(?i)\b(?:type|tip)\s*[:=]?\s*([A-Za-z0-9_\-]{2,30})\b`)
	targetTailRe  = regexp.MustCompile(`(?i)\b(objects|objeler|count|kaç|adet)\b$`)

	yesNoOnlyRe  = regexp.MustCompile(`(?i)\b(answer\s+yes/no|answer\s+(yes|no)|reply\s+with\s+only\s+(yes|no)|yes/no|evet/hayir)\b`)
	numberOnlyRe = regexp.MustCompile(`(?i)\b(reply\s+with\s+only\s+the\s+number|only\s+the\s+number|sadece\s+sayı|yalnızca\s+sayı|yalnızca\s+rakam)\b`)

	lineTypeRe = regexp.MustCompile(`(?i)\bline\b`)
)

// Planner classifies a question into a knowledge-source plan. It is a pure
// function of (question, object summary): identical inputs always produce
// the identical plan, so retrieval parameters are reproducible. It never
// fails; ambiguous intent defaults to the hybrid strategy, which gathers a
// superset of the evidence either narrower strategy would.
type Planner struct {
	defaultTopK int
}

// NewPlanner creates a planner with the configured default result count.
func NewPlanner(defaultTopK int) *Planner {
	if defaultTopK <= 0 {
		defaultTopK = 2
	}
	return &Planner{defaultTopK: defaultTopK}
}

// Plan derives the routing decision for a question.
func (p *Planner) Plan(q Question, summary ObjectSummary) Plan {
	text := strings.TrimSpace(q.Text)

	askedPage := askedPage(text)
	visual := visualRe.MatchString(text)
	objSignal := objIntentRe.MatchString(text)
	docSignal := askedPage > 0 || visual || docRuleRe.MatchString(text)

	var strategy Strategy
	switch {
	case objSignal && !docSignal:
		strategy = StrategyObjectsOnly
	case docSignal && !objSignal:
		strategy = StrategyDocumentsOnly
	default:
		// Both signals, or neither: hybrid is the safe default.
		strategy = StrategyHybrid
	}

	plan := Plan{
		Strategy:     strategy,
		VisualIntent: visual,
		AskedPage:    askedPage,
		NumberOnly:   numberOnlyRe.MatchString(text),
		YesNoOnly:    yesNoOnlyRe.MatchString(text),
	}

	plan.TopK = q.TopK
	if plan.TopK <= 0 {
		plan.TopK = p.defaultTopK
	}
	// Page-scoped questions need a wider net to reach the right page.
	if askedPage > 0 && plan.TopK < 5 {
		plan.TopK = 5
	}

	if plan.NeedsObjects() {
		plan.LayerTarget = extractLayerTarget(text)
		plan.TypeTarget = extractTypeTarget(text)
		plan.Predicate = selectPredicate(text, plan.LayerTarget, plan.TypeTarget)
	}

	return plan
}

// selectPredicate picks which evaluator predicate the question's extracted
// target implies.
func selectPredicate(text, layerTarget, typeTarget string) PredicateKind {
	counting := countRe.MatchString(text)
	switch {
	case counting && layerTarget != "":
		return PredicateCountByLayer
	case counting && typeTarget != "":
		return PredicateCountByType
	case counting:
		return PredicateCountAll
	case layerTarget != "":
		return PredicateExistsLayer
	case typeTarget != "":
		return PredicateExistsType
	default:
		return PredicateCountAll
	}
}

func askedPage(text string) int {
	m := pageRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	page := 0
	for _, r := range m[1] {
		page = page*10 + int(r-'0')
	}
	if page < 1 || page > 999 {
		return 0
	}
	return page
}

// extractLayerTarget pulls an explicit layer name from phrasings like
// "layer Windows" or "katman: Highway", falling back to well-known layer
// keywords when the question names one without the layer prefix.
func extractLayerTarget(text string) string {
	if m := layerTargetRe.FindStringSubmatch(text); m != nil {
		name := cleanWS(m[1])
		name = strings.TrimSpace(targetTailRe.ReplaceAllString(name, ""))
		if name != "" {
			return name
		}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "window") || strings.Contains(lower, "pencere"):
		return "Windows"
	case strings.Contains(lower, "highway"):
		return "Highway"
	}
	return ""
}

func extractTypeTarget(text string) string {
	if m := typeTargetRe.FindStringSubmatch(text); m != nil {
		if name := cleanWS(m[1]); name != "" {
			return name
		}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "polyline"):
		return "POLYLINE"
	case lineTypeRe.MatchString(lower):
		return "LINE"
	}
	return ""
}

// cleanWS collapses whitespace so substring checks stay stable across
// single-line PDF extractions.
func cleanWS(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " "))
}
