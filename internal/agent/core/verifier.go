package core

import "strings"

// sourceExcerpt mirrors what the prompt showed the model for one source slot.
type sourceExcerpt struct {
	chunkID string
	excerpt string
}

// excerptMap rebuilds the 1-based source numbering used in the prompt so
// evidence can be checked against exactly the text the model saw.
func excerptMap(chunks []RetrievedChunk) map[int]sourceExcerpt {
	m := make(map[int]sourceExcerpt, len(chunks))
	for i, h := range chunks {
		excerpt := cleanWS(h.Text)
		if len(excerpt) > maxExcerpt {
			excerpt = excerpt[:maxExcerpt]
		}
		m[i+1] = sourceExcerpt{chunkID: h.ChunkID, excerpt: excerpt}
	}
	return m
}

// VerifyEvidence checks every claimed evidence item against the literal text
// of the chunks used for synthesis. An item survives only when its source
// slot exists, its chunk id matches that slot, its quote is non-empty, at
// most 180 characters, and an exact substring of the excerpt shown to the
// model. Duplicates are dropped and at most two items are kept.
//
// The second return value reports whether the claims were fully grounded:
// it is false when any claimed item was rejected.
func VerifyEvidence(claimed []Evidence, used []RetrievedChunk) ([]Evidence, bool) {
	if len(claimed) == 0 {
		return nil, true
	}

	srcMap := excerptMap(used)
	valid := make([]Evidence, 0, len(claimed))
	seenQuotes := make(map[string]struct{})
	grounded := true

	for _, ev := range claimed {
		src, ok := srcMap[ev.SourceID]
		if !ok {
			grounded = false
			continue
		}
		if ev.ChunkID != src.chunkID {
			grounded = false
			continue
		}

		quote := cleanWS(ev.Quote)
		if quote == "" || len(quote) > maxQuote {
			grounded = false
			continue
		}
		if !strings.Contains(src.excerpt, quote) {
			grounded = false
			continue
		}

		if _, dup := seenQuotes[quote]; dup {
			continue
		}
		seenQuotes[quote] = struct{}{}

		valid = append(valid, Evidence{SourceID: ev.SourceID, ChunkID: ev.ChunkID, Quote: quote})
		if len(valid) >= maxEvidence {
			break
		}
	}

	return valid, grounded
}
