package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"draftqa/internal/agent/core"
)

func TestHTTPRetrieverSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "highway" || req.TopK != 2 {
			t.Fatalf("unexpected request: %+v", req)
		}
		// Out of order on purpose; the adapter must normalize.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"chunk_id": "c2", "doc_id": "d1", "page": 2, "kind": "caption", "text": "b", "score": 0.4},
				{"chunk_id": "c1", "doc_id": "d1", "page": 1, "kind": "text", "text": "a", "score": 0.9},
			},
		})
	}))
	defer srv.Close()

	r := NewHTTPRetriever(NewHTTPClient(5*time.Second, 0, time.Millisecond), srv.URL)
	hits, err := r.Search(context.Background(), "highway", 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ChunkID != "c1" || hits[1].ChunkID != "c2" {
		t.Fatalf("hits not normalized by score: %v", hits)
	}
	if hits[0].Kind != core.ChunkKindText {
		t.Fatalf("kind = %s, want text", hits[0].Kind)
	}
}

func TestHTTPRetrieverUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewHTTPRetriever(NewHTTPClient(time.Second, 0, time.Millisecond), srv.URL)
	if _, err := r.Search(context.Background(), "q", 1, nil); !errors.Is(err, core.ErrRetrievalUnavailable) {
		t.Fatalf("err = %v, want retrieval unavailable", err)
	}

	// Unreachable endpoint maps to the same sentinel.
	r = NewHTTPRetriever(NewHTTPClient(time.Second, 0, time.Millisecond), "http://127.0.0.1:1/search")
	if _, err := r.Search(context.Background(), "q", 1, nil); !errors.Is(err, core.ErrRetrievalUnavailable) {
		t.Fatalf("err = %v, want retrieval unavailable", err)
	}
}

func TestHTTPClientRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second, 1, time.Millisecond)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.DoJSON(context.Background(), "POST", srv.URL, nil, map[string]string{"q": "x"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if !out.OK || calls != 2 {
		t.Fatalf("ok=%t calls=%d, want retry then success", out.OK, calls)
	}
}
