package core

import (
	"context"
)

// ChunkKind distinguishes extracted page text from generated image captions.
type ChunkKind string

const (
	ChunkKindText    ChunkKind = "text"
	ChunkKindCaption ChunkKind = "caption"
)

// Question is the immutable per-request input.
type Question struct {
	Text      string `json:"question"`
	TopK      int    `json:"top_k"`
	QuoteMode bool   `json:"quote_mode"`
}

// Point is a 2D coordinate used by geometric session objects.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ObjectRecord is a typed geometric record in the session object set.
// Kind-specific attributes: LINE carries Start/End, POLYLINE carries Points.
type ObjectRecord struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Layer  string  `json:"layer"`
	Start  *Point  `json:"start,omitempty"`
	End    *Point  `json:"end,omitempty"`
	Points []Point `json:"points,omitempty"`
}

// SessionObjectSet maps generated object ids to records. It is owned
// exclusively by one user's session and replaced wholesale on update.
type SessionObjectSet map[string]ObjectRecord

// ObjectSummary is the numeric digest of a session object set.
type ObjectSummary struct {
	Total   int            `json:"total_objects"`
	ByLayer map[string]int `json:"by_layer"`
	ByType  map[string]int `json:"by_type"`
}

// Chunk is a retrievable unit of document content.
type Chunk struct {
	ChunkID string    `json:"chunk_id"`
	DocID   string    `json:"doc_id"`
	Page    int       `json:"page"`
	Kind    ChunkKind `json:"kind"`
	Text    string    `json:"text"`
}

// RetrievedChunk pairs a chunk with its relevance score.
type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Strategy enumerates which knowledge sources a question requires.
type Strategy string

const (
	StrategyDocumentsOnly Strategy = "documents_only"
	StrategyObjectsOnly   Strategy = "objects_only"
	StrategyHybrid        Strategy = "hybrid"
)

// PredicateKind enumerates the object evaluator's fixed vocabulary.
type PredicateKind string

const (
	PredicateCountAll     PredicateKind = "count_all"
	PredicateCountByLayer PredicateKind = "count_by_layer"
	PredicateCountByType  PredicateKind = "count_by_type"
	PredicateExistsLayer  PredicateKind = "exists_by_layer"
	PredicateExistsType   PredicateKind = "exists_by_type"
)

// Plan is the per-request routing decision. It is derived deterministically
// from the question text and the object summary, and never persisted.
type Plan struct {
	Strategy     Strategy      `json:"strategy"`
	TopK         int           `json:"top_k"`
	VisualIntent bool          `json:"visual_intent"`
	AskedPage    int           `json:"asked_page,omitempty"`
	Predicate    PredicateKind `json:"predicate,omitempty"`
	LayerTarget  string        `json:"layer_target,omitempty"`
	TypeTarget   string        `json:"type_target,omitempty"`
	NumberOnly   bool          `json:"number_only,omitempty"`
	YesNoOnly    bool          `json:"yesno_only,omitempty"`
}

// NeedsDocuments reports whether the plan triggers retrieval.
func (p Plan) NeedsDocuments() bool { return p.Strategy != StrategyObjectsOnly }

// NeedsObjects reports whether the plan triggers object evaluation.
func (p Plan) NeedsObjects() bool { return p.Strategy != StrategyDocumentsOnly }

// ObjectCheck is a single evaluated predicate over the session object set.
type ObjectCheck struct {
	Predicate  string   `json:"predicate"`
	Result     bool     `json:"result"`
	Count      int      `json:"count"`
	MatchedIDs []string `json:"matched_ids"`
}

// Evidence cites a literal quote inside a retrieved chunk. Under quote mode
// the quote must be byte-for-byte a substring of the excerpt shown to the
// model for that chunk.
type Evidence struct {
	SourceID int    `json:"source_id"`
	ChunkID  string `json:"chunk_id"`
	Quote    string `json:"quote"`
}

// SourceRef is chunk metadata surfaced in the response envelope.
type SourceRef struct {
	ChunkID string    `json:"chunk_id"`
	DocID   string    `json:"doc_id"`
	Page    int       `json:"page"`
	Kind    ChunkKind `json:"kind"`
	Score   float64   `json:"score"`
	Excerpt string    `json:"excerpt,omitempty"`
}

// Answer is the final response envelope. It is constructed once per request
// and never mutated after being returned.
type Answer struct {
	ID            string        `json:"id"`
	Text          string        `json:"answer"`
	Evidence      []Evidence    `json:"evidence"`
	ObjectSummary ObjectSummary `json:"object_summary"`
	Sources       []SourceRef   `json:"sources"`
	Plan          Plan          `json:"plan"`
	ObjectChecks  []ObjectCheck `json:"object_checks"`
	Unverified    bool          `json:"unverified"`
}

// RetrievalFilter optionally restricts a search, e.g. to caption chunks
// when the question is visually framed.
type RetrievalFilter struct {
	Kind ChunkKind
	Page int
}

// Retriever is the boundary to the vector similarity search collaborator.
// Results are ordered by descending score with ties broken by ascending
// chunk id, and never exceed topK entries.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, filter *RetrievalFilter) ([]RetrievedChunk, error)
}

// SessionReader is the read side of the session collaborator; the core only
// reads the current set at evaluation time and never persists it.
type SessionReader interface {
	GetObjects(ctx context.Context, user string) (SessionObjectSet, error)
}

// InsufficientInfo is the canonical fallback answer when no grounded claim
// can be made from the provided excerpts.
const InsufficientInfo = "I don't have enough information in the provided excerpts."
