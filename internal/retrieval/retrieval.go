// Package retrieval adapts similarity search backends to the core Retriever
// boundary: a remote HTTP search service and a local BM25 index.
package retrieval

import (
	"fmt"
	"sort"

	"draftqa/config"
	"draftqa/internal/agent/core"
)

// New builds the retriever named by the configuration. The bleve mode starts
// empty; callers index the corpus catalog before serving. indexPath selects
// a persistent bleve index, empty means memory-only.
func New(cfg config.RetrievalConfig, indexPath string) (core.Retriever, error) {
	switch cfg.Mode {
	case "http":
		client := NewHTTPClient(cfg.Timeout, cfg.Retries, 0)
		return NewHTTPRetriever(client, cfg.URL), nil
	case "bleve":
		var (
			r   *BleveRetriever
			err error
		)
		if indexPath != "" {
			r, err = OpenBleveRetriever(indexPath)
		} else {
			r, err = NewBleveRetriever()
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode: %s", cfg.Mode)
	}
}

// normalize enforces the ordering contract of the Retriever boundary:
// descending score, ties broken by ascending chunk id.
func normalize(hits []core.RetrievedChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})
}
