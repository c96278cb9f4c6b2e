package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"

	"draftqa/provider"
)

// maxContextChunks bounds how many chunks are packed into one prompt.
const maxContextChunks = 5

// Draft is a parsed synthesis attempt before grounding verification.
type Draft struct {
	Text     string
	Evidence []Evidence
	Raw      string
	// Direct marks answers computed deterministically from object checks,
	// which carry no document claims and need no evidence.
	Direct bool
}

// Synthesizer builds a grounded prompt and turns the model's raw output into
// a structured draft. Pure object questions are answered deterministically
// without calling the model.
type Synthesizer struct {
	provider provider.Provider
	logger   *log.Logger
}

// NewSynthesizer creates a synthesizer backed by the given model provider.
func NewSynthesizer(p provider.Provider, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)
	}
	return &Synthesizer{provider: p, logger: logger}
}

// Synthesize produces a draft answer for the question. correction is
// non-empty when re-synthesizing after a grounding failure.
func (s *Synthesizer) Synthesize(ctx context.Context, q Question, plan Plan, chunks []RetrievedChunk, summary ObjectSummary, checks []ObjectCheck, correction string) (Draft, error) {
	// Pure object questions have a deterministic answer; the model adds
	// nothing but noise and latency.
	if plan.Strategy == StrategyObjectsOnly {
		return directObjectDraft(plan, summary, checks), nil
	}

	// Visually framed question with no caption evidence available: nothing
	// the model says could be grounded.
	if plan.VisualIntent && !hasCaptionChunk(chunks) {
		return Draft{Text: InsufficientInfo, Direct: true}, nil
	}

	prompt := BuildPrompt(q, plan, summary, chunks, checks, correction)
	raw, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return Draft{}, fmt.Errorf("synthesis call failed: %w", err)
	}

	return parseDraft(raw), nil
}

// directObjectDraft answers count and existence predicates straight from the
// evaluated checks.
func directObjectDraft(plan Plan, summary ObjectSummary, checks []ObjectCheck) Draft {
	if len(checks) == 0 {
		return Draft{Text: strconv.Itoa(summary.Total), Direct: true}
	}
	check := checks[0]
	switch plan.Predicate {
	case PredicateExistsLayer, PredicateExistsType:
		if check.Result {
			return Draft{Text: "YES", Direct: true}
		}
		return Draft{Text: "NO", Direct: true}
	default:
		return Draft{Text: strconv.Itoa(check.Count), Direct: true}
	}
}

// parseDraft extracts the outermost JSON object from the raw model output
// and decodes the {answer, evidence} shape. Unparseable output degrades to
// the insufficient-information fallback rather than an error.
func parseDraft(raw string) Draft {
	candidate := extractJSONBlock(raw)

	var parsed struct {
		Answer   string     `json:"answer"`
		Evidence []Evidence `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return Draft{Text: InsufficientInfo, Raw: raw}
	}
	if parsed.Answer == "" {
		parsed.Answer = InsufficientInfo
	}
	return Draft{Text: parsed.Answer, Evidence: parsed.Evidence, Raw: raw}
}

// extractJSONBlock trims any prose the model wrapped around the JSON object.
func extractJSONBlock(s string) string {
	i := -1
	j := -1
	for idx, r := range s {
		if r == '{' {
			i = idx
			break
		}
	}
	for idx := len(s) - 1; idx >= 0; idx-- {
		if s[idx] == '}' {
			j = idx
			break
		}
	}
	if i == -1 || j == -1 || j <= i {
		return s
	}
	return s[i : j+1]
}

func hasCaptionChunk(chunks []RetrievedChunk) bool {
	for _, h := range chunks {
		if h.Kind == ChunkKindCaption {
			return true
		}
	}
	return false
}

// SelectContext picks which retrieved chunks enter the prompt. Visually
// framed questions lead with the best caption (preferring the asked page)
// plus the text chunk from that same page; everything else leads with text
// chunks. Output order is deterministic for a given retrieval result.
func SelectContext(plan Plan, hits []RetrievedChunk) []RetrievedChunk {
	if len(hits) == 0 {
		return nil
	}

	var caps, txts []RetrievedChunk
	for _, h := range hits {
		if h.Kind == ChunkKindCaption {
			caps = append(caps, h)
		} else {
			txts = append(txts, h)
		}
	}
	sortByScore(caps)
	sortByScore(txts)

	if !plan.VisualIntent || len(caps) == 0 {
		if len(txts) == 0 {
			return truncateChunks(hits, maxContextChunks)
		}
		return truncateChunks(txts, maxContextChunks)
	}

	bestCap := caps[0]
	if plan.AskedPage > 0 {
		for _, c := range caps {
			if c.Page == plan.AskedPage {
				bestCap = c
				break
			}
		}
	}

	selected := []RetrievedChunk{bestCap}
	seen := map[string]struct{}{bestCap.ChunkID: {}}

	// Companion text from the caption's page anchors the caption in the
	// surrounding rules.
	for _, t := range txts {
		if t.Page == bestCap.Page {
			selected = append(selected, t)
			seen[t.ChunkID] = struct{}{}
			break
		}
	}
	if len(selected) == 1 && len(txts) > 0 {
		selected = append(selected, txts[0])
		seen[txts[0].ChunkID] = struct{}{}
	}

	pool := append(append([]RetrievedChunk{}, caps...), txts...)
	sortByScore(pool)
	for _, h := range pool {
		if len(selected) >= maxContextChunks {
			break
		}
		if _, dup := seen[h.ChunkID]; dup {
			continue
		}
		selected = append(selected, h)
		seen[h.ChunkID] = struct{}{}
	}
	return selected
}

func sortByScore(chunks []RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score == chunks[j].Score {
			return chunks[i].ChunkID < chunks[j].ChunkID
		}
		return chunks[i].Score > chunks[j].Score
	})
}

func truncateChunks(chunks []RetrievedChunk, n int) []RetrievedChunk {
	if len(chunks) <= n {
		return chunks
	}
	return chunks[:n]
}
