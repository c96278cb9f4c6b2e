package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// maxExcerpt bounds the excerpt shown to the model per source. Excerpts
	// are truncated without an ellipsis so substring checks stay exact.
	maxExcerpt = 700
	// maxQuote bounds a single evidence quote.
	maxQuote = 180
	// maxEvidence bounds the number of evidence items kept per answer.
	maxEvidence = 2
	// maxQuoteCandidates bounds the candidate list offered per source.
	maxQuoteCandidates = 8
)

var sentenceSplitRe = regexp.MustCompile(`(?:[.!?])\s+|;\s+`)

// BuildPrompt assembles the grounded context for the generative model:
// numbered sources with page labels and verbatim quote candidates, the
// session object summary, strict output modes, and the evidence rules.
// correction is non-empty on a re-synthesis attempt after a grounding
// failure.
func BuildPrompt(q Question, plan Plan, summary ObjectSummary, chunks []RetrievedChunk, checks []ObjectCheck, correction string) string {
	var ctxBlocks []string
	hasCaption := false

	for i, h := range chunks {
		if h.Kind == ChunkKindCaption {
			hasCaption = true
		}

		text := cleanWS(h.Text)
		if len(text) > maxExcerpt {
			text = text[:maxExcerpt]
		}

		candidates := quoteCandidates(text)
		qcLines := "  - (none)"
		if len(candidates) > 0 {
			lines := make([]string, len(candidates))
			for j, c := range candidates {
				lines[j] = "  - " + c
			}
			qcLines = strings.Join(lines, "\n")
		}

		ctxBlocks = append(ctxBlocks, fmt.Sprintf(
			"SOURCE %d\nkind: %s\nchunk_id: %s\ndoc: %s\npage: %d\nexcerpt: %s\nquote_candidates (copy EXACTLY one of these as evidence.quote):\n%s",
			i+1, h.Kind, h.ChunkID, h.DocID, h.Page, text, qcLines))
	}

	context := "NO_EXCERPTS_FOUND"
	if len(ctxBlocks) > 0 {
		context = strings.Join(ctxBlocks, "\n\n")
	}

	objJSON, _ := json.Marshal(summary)
	checksJSON, _ := json.Marshal(checks)

	var b strings.Builder
	b.WriteString("You are a hybrid document/session QA agent.\n\n")
	b.WriteString("Return ONLY valid JSON (no markdown, no backticks).\n\n")

	b.WriteString("OBJECT_SUMMARY (session-only; OK to use it for object counting/presence, NOT for document facts):\n")
	b.Write(objJSON)
	b.WriteString("\n\n")

	if len(checks) > 0 {
		b.WriteString("OBJECT_CHECKS (already evaluated against the session; your object claims MUST agree with these):\n")
		b.Write(checksJSON)
		b.WriteString("\n\n")
	}

	b.WriteString("SOURCE KIND:\n")
	b.WriteString("- kind=text    => extracted PDF text\n")
	b.WriteString("- kind=caption => generated from a page image (diagram/table/figure)\n\n")

	b.WriteString("STRICT OUTPUT MODES:\n")
	fmt.Fprintf(&b, "- If the question requests YES/NO only (yesno_only=%t), then answer MUST be exactly \"YES\" or \"NO\" (no extra words).\n", plan.YesNoOnly)
	fmt.Fprintf(&b, "- If the question requests number-only (number_only=%t), then answer MUST be only digits (e.g., \"3\"), nothing else.\n\n", plan.NumberOnly)

	b.WriteString("DOCUMENT RULES:\n")
	b.WriteString("- Use ONLY the SOURCES for factual claims about the document.\n")
	if plan.AskedPage > 0 {
		fmt.Fprintf(&b, "- Prefer SOURCES from page %d.\n", plan.AskedPage)
	}
	b.WriteString("- Use kind=caption for \"what is shown\"; use kind=text for rules/measurements/definitions.\n")
	if plan.VisualIntent {
		b.WriteString("- The question is about a diagram/figure/table: the answer MUST primarily summarize caption content.\n")
	}
	b.WriteString("\n")

	if plan.Strategy == StrategyHybrid {
		b.WriteString("HYBRID RULE:\n")
		b.WriteString("- A yes/no verdict MUST be grounded in BOTH the document rule (quoted from a SOURCE) and the object check result above.\n\n")
	}

	b.WriteString("EVIDENCE RULES:\n")
	b.WriteString("- Evidence is required for any document-derived claim.\n")
	b.WriteString("- evidence.quote MUST be copied EXACTLY from quote_candidates (preferred) OR be an exact substring of excerpt.\n")
	fmt.Fprintf(&b, "- quote length <= %d chars.\n", maxQuote)
	fmt.Fprintf(&b, "- Max %d evidence items.\n", maxEvidence)
	b.WriteString("- evidence.source_id must match SOURCE number.\n")
	b.WriteString("- evidence.chunk_id must match that SOURCE chunk_id.\n\n")

	if plan.VisualIntent && !hasCaption {
		fmt.Fprintf(&b, "IMPORTANT: the question asks about a diagram/figure/table but there is NO kind=caption source. Output EXACTLY:\n{ \"answer\": %q, \"evidence\": [] }\n\n", InsufficientInfo)
	}

	fmt.Fprintf(&b, "If you cannot support any document claim with an exact quote, output EXACTLY:\n{ \"answer\": %q, \"evidence\": [] }\n\n", InsufficientInfo)

	if correction != "" {
		b.WriteString("CORRECTION:\n- ")
		b.WriteString(correction)
		b.WriteString("\n\n")
	}

	b.WriteString("JSON schema:\n")
	b.WriteString(`{"answer": "string (max 3 sentences, unless strict YES/NO or number-only is requested)", "evidence": [{"source_id": 1, "chunk_id": "string", "quote": "string"}]}`)
	b.WriteString("\n\nSOURCES:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(q.Text)
	b.WriteString("\n\nReturn JSON only:\n")

	return b.String()
}

// quoteCandidates proposes verbatim spans the model can cite. Caption
// excerpts split on their bullet separator; everything else splits into
// sentences. Candidates are exact substrings of the excerpt.
func quoteCandidates(excerpt string) []string {
	ex := cleanWS(excerpt)
	if ex == "" {
		return nil
	}

	var cands []string
	if strings.Contains(ex, " - ") {
		for _, part := range strings.Split(ex, " - ") {
			part = cleanWS(part)
			if part == "" || strings.HasPrefix(strings.ToLower(part), "figure/table caption") {
				continue
			}
			if len(part) > maxQuote {
				part = part[:maxQuote]
			}
			cands = append(cands, part)
			if len(cands) >= maxQuoteCandidates {
				break
			}
		}
	}

	if len(cands) == 0 {
		for _, part := range sentenceSplitRe.Split(ex, -1) {
			part = cleanWS(part)
			if part == "" {
				continue
			}
			if len(part) > maxQuote {
				part = part[:maxQuote]
			}
			cands = append(cands, part)
			if len(cands) >= maxQuoteCandidates {
				break
			}
		}
	}

	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
