package retrieval

import (
	"context"
	"fmt"

	"draftqa/internal/agent/core"
)

// HTTPRetriever adapts a remote similarity search service to the core
// Retriever boundary. Any transport or service failure surfaces as
// core.ErrRetrievalUnavailable.
type HTTPRetriever struct {
	client *HTTPClient
	url    string
}

// NewHTTPRetriever points the adapter at the remote search endpoint.
func NewHTTPRetriever(client *HTTPClient, url string) *HTTPRetriever {
	return &HTTPRetriever{client: client, url: url}
}

type searchRequest struct {
	Query  string        `json:"query"`
	TopK   int           `json:"top_k"`
	Filter *searchFilter `json:"filter,omitempty"`
}

type searchFilter struct {
	Kind string `json:"kind,omitempty"`
	Page int    `json:"page,omitempty"`
}

type searchResponse struct {
	Results []struct {
		ChunkID string  `json:"chunk_id"`
		DocID   string  `json:"doc_id"`
		Page    int     `json:"page"`
		Kind    string  `json:"kind"`
		Text    string  `json:"text"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs the similarity query against the remote service.
func (r *HTTPRetriever) Search(ctx context.Context, query string, topK int, filter *core.RetrievalFilter) ([]core.RetrievedChunk, error) {
	req := searchRequest{Query: query, TopK: topK}
	if filter != nil {
		req.Filter = &searchFilter{Kind: string(filter.Kind), Page: filter.Page}
	}

	var resp searchResponse
	if err := r.client.DoJSON(ctx, "POST", r.url, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRetrievalUnavailable, err)
	}

	hits := make([]core.RetrievedChunk, 0, len(resp.Results))
	for _, res := range resp.Results {
		hits = append(hits, core.RetrievedChunk{
			Chunk: core.Chunk{
				ChunkID: res.ChunkID,
				DocID:   res.DocID,
				Page:    res.Page,
				Kind:    core.ChunkKind(res.Kind),
				Text:    res.Text,
			},
			Score: res.Score,
		})
	}
	normalize(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
