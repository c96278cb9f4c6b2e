package core

import (
	"strings"
	"testing"
)

func usedChunks() []RetrievedChunk {
	return []RetrievedChunk{
		{Chunk: Chunk{ChunkID: "c1", DocID: "d1", Page: 3, Kind: ChunkKindText,
			Text: "Highway crossings must maintain a minimum clearance of 4.5 meters. Side roads are exempt."}, Score: 0.9},
		{Chunk: Chunk{ChunkID: "c2", DocID: "d1", Page: 4, Kind: ChunkKindCaption,
			Text: "Figure 7 - cross section of the carriageway - drainage channel on the left"}, Score: 0.5},
	}
}

func TestVerifyEvidenceExactSubstring(t *testing.T) {
	claimed := []Evidence{{SourceID: 1, ChunkID: "c1", Quote: "minimum clearance of 4.5 meters"}}
	valid, grounded := VerifyEvidence(claimed, usedChunks())
	if !grounded {
		t.Fatal("exact substring rejected")
	}
	if len(valid) != 1 || valid[0].Quote != "minimum clearance of 4.5 meters" {
		t.Fatalf("valid = %+v", valid)
	}
}

func TestVerifyEvidenceNormalizesWhitespace(t *testing.T) {
	claimed := []Evidence{{SourceID: 1, ChunkID: "c1", Quote: "minimum   clearance of\n4.5 meters"}}
	valid, grounded := VerifyEvidence(claimed, usedChunks())
	if !grounded || len(valid) != 1 {
		t.Fatalf("whitespace-normalized quote rejected: %+v", valid)
	}
}

func TestVerifyEvidenceRejectsFabrication(t *testing.T) {
	claimed := []Evidence{{SourceID: 1, ChunkID: "c1", Quote: "clearance of 6.0 meters"}}
	valid, grounded := VerifyEvidence(claimed, usedChunks())
	if grounded {
		t.Fatal("fabricated quote accepted")
	}
	if len(valid) != 0 {
		t.Fatalf("valid = %+v, want none", valid)
	}
}

func TestVerifyEvidenceRejectsMismatchedChunk(t *testing.T) {
	// Quote exists in source 1 but is attributed to source 2.
	claimed := []Evidence{{SourceID: 2, ChunkID: "c1", Quote: "minimum clearance of 4.5 meters"}}
	if _, grounded := VerifyEvidence(claimed, usedChunks()); grounded {
		t.Fatal("mismatched chunk id accepted")
	}

	claimed = []Evidence{{SourceID: 3, ChunkID: "c3", Quote: "anything"}}
	if _, grounded := VerifyEvidence(claimed, usedChunks()); grounded {
		t.Fatal("unknown source slot accepted")
	}
}

func TestVerifyEvidenceRejectsOversizedQuote(t *testing.T) {
	long := strings.Repeat("a", maxQuote+1)
	claimed := []Evidence{{SourceID: 1, ChunkID: "c1", Quote: long}}
	if _, grounded := VerifyEvidence(claimed, usedChunks()); grounded {
		t.Fatal("oversized quote accepted")
	}
}

func TestVerifyEvidenceDedupesAndCaps(t *testing.T) {
	claimed := []Evidence{
		{SourceID: 1, ChunkID: "c1", Quote: "minimum clearance of 4.5 meters"},
		{SourceID: 1, ChunkID: "c1", Quote: "minimum clearance of 4.5 meters"},
		{SourceID: 1, ChunkID: "c1", Quote: "Side roads are exempt"},
		{SourceID: 2, ChunkID: "c2", Quote: "drainage channel on the left"},
	}
	valid, grounded := VerifyEvidence(claimed, usedChunks())
	if !grounded {
		t.Fatal("valid claims rejected")
	}
	if len(valid) != maxEvidence {
		t.Fatalf("kept %d items, want %d", len(valid), maxEvidence)
	}
	if valid[0].Quote == valid[1].Quote {
		t.Fatal("duplicate quote kept")
	}
}

func TestVerifyEvidenceEmptyClaims(t *testing.T) {
	valid, grounded := VerifyEvidence(nil, usedChunks())
	if !grounded || len(valid) != 0 {
		t.Fatalf("empty claims: valid=%v grounded=%t", valid, grounded)
	}
}
