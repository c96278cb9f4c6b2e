package retrieval

import (
	"context"
	"testing"

	"draftqa/internal/agent/core"
)

func testChunks() []core.Chunk {
	return []core.Chunk{
		{ChunkID: "c1", DocID: "d1", Page: 1, Kind: core.ChunkKindText,
			Text: "Highway crossings must maintain a minimum clearance of 4.5 meters."},
		{ChunkID: "c2", DocID: "d1", Page: 2, Kind: core.ChunkKindCaption,
			Text: "Figure 3 - highway cross section with drainage channel"},
		{ChunkID: "c3", DocID: "d1", Page: 3, Kind: core.ChunkKindText,
			Text: "Residential setbacks are measured from the property line."},
	}
}

func newTestIndex(t *testing.T) *BleveRetriever {
	t.Helper()
	r, err := NewBleveRetriever()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	if err := r.IndexChunks(testChunks()); err != nil {
		t.Fatalf("index chunks: %v", err)
	}
	return r
}

func TestBleveSearch(t *testing.T) {
	r := newTestIndex(t)

	hits, err := r.Search(context.Background(), "highway clearance", 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for indexed content")
	}
	if len(hits) > 2 {
		t.Fatalf("got %d hits, top_k was 2", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("hits out of score order: %v", hits)
		}
	}
	if hits[0].ChunkID == "" || hits[0].Text == "" {
		t.Fatalf("hit missing metadata: %+v", hits[0])
	}
}

func TestBleveSearchKindFilter(t *testing.T) {
	r := newTestIndex(t)

	hits, err := r.Search(context.Background(), "highway", 5, &core.RetrievalFilter{Kind: core.ChunkKindCaption})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("caption filter dropped everything")
	}
	for _, h := range hits {
		if h.Kind != core.ChunkKindCaption {
			t.Fatalf("filter leaked %s chunk %s", h.Kind, h.ChunkID)
		}
	}
}

func TestBleveSearchPageFilter(t *testing.T) {
	r := newTestIndex(t)

	hits, err := r.Search(context.Background(), "highway", 5, &core.RetrievalFilter{Page: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.Page != 2 {
			t.Fatalf("filter leaked page %d", h.Page)
		}
	}
}

func TestBleveSearchZeroTopK(t *testing.T) {
	r := newTestIndex(t)
	hits, err := r.Search(context.Background(), "highway", 0, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits != nil {
		t.Fatalf("top_k=0 returned %v", hits)
	}
}

func TestBleveCount(t *testing.T) {
	r := newTestIndex(t)
	n, err := r.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}
