package retrieval

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve"

	"draftqa/internal/agent/core"
)

// BleveRetriever serves similarity search from a local BM25 index, for
// deployments without a remote vector service and for tests. Chunk metadata
// lives in a side map keyed by chunk id; the index only scores.
type BleveRetriever struct {
	index bleve.Index
	mu    sync.RWMutex
	meta  map[string]core.Chunk
}

// NewBleveRetriever builds a memory-only index.
func NewBleveRetriever() (*BleveRetriever, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &BleveRetriever{index: index, meta: make(map[string]core.Chunk)}, nil
}

// OpenBleveRetriever opens (or creates) a persistent index at path. Chunk
// metadata is not persisted, so callers reindex the catalog after opening.
func OpenBleveRetriever(path string) (*BleveRetriever, error) {
	index, err := bleve.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, err
		}
		index, err = bleve.New(path, bleve.NewIndexMapping())
		if err != nil {
			return nil, err
		}
	}
	return &BleveRetriever{index: index, meta: make(map[string]core.Chunk)}, nil
}

// IndexChunks (re)indexes the given chunks in one batch.
func (r *BleveRetriever) IndexChunks(chunks []core.Chunk) error {
	batch := r.index.NewBatch()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		r.meta[c.ChunkID] = c
		if err := batch.Index(c.ChunkID, map[string]any{"text": c.Text}); err != nil {
			return err
		}
	}
	return r.index.Batch(batch)
}

// Count returns the number of indexed chunks.
func (r *BleveRetriever) Count() (uint64, error) {
	return r.index.DocCount()
}

// Close releases the underlying index.
func (r *BleveRetriever) Close() error {
	return r.index.Close()
}

// Search scores the query with BM25, applies the optional kind and page
// filter, and returns at most topK chunks in descending score order with
// ties broken by ascending chunk id.
func (r *BleveRetriever) Search(ctx context.Context, query string, topK int, filter *core.RetrievalFilter) ([]core.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, nil
	}

	// Over-fetch so post-hoc filtering still fills topK slots.
	q := bleve.NewQueryStringQuery(query)
	searchReq := bleve.NewSearchRequestOptions(q, topK*3, 0, false)
	res, err := r.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRetrievalUnavailable, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hits := make([]core.RetrievedChunk, 0, topK)
	for _, hit := range res.Hits {
		chunk, ok := r.meta[hit.ID]
		if !ok {
			continue
		}
		if filter != nil {
			if filter.Kind != "" && chunk.Kind != filter.Kind {
				continue
			}
			if filter.Page > 0 && chunk.Page != filter.Page {
				continue
			}
		}
		hits = append(hits, core.RetrievedChunk{Chunk: chunk, Score: hit.Score})
	}
	normalize(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
