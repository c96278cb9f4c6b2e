// Package corpus is the read side of the indexed document catalog: page
// tagged text and caption chunks persisted in Postgres. Answering never
// writes here; ingestion is a separate pipeline.
package corpus

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"draftqa/internal/agent/core"
)

// Catalog reads chunk rows from Postgres.
type Catalog struct {
	DB *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Catalog {
	return &Catalog{DB: db}
}

// NewWithDSN opens a connection pool for the given Postgres URL and pings it.
func NewWithDSN(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Catalog{DB: db}, nil
}

// Close releases the connection pool.
func (c *Catalog) Close() error {
	return c.DB.Close()
}

// Chunks returns every chunk in the catalog in stable chunk id order, for
// building the local search index.
func (c *Catalog) Chunks(ctx context.Context) ([]core.Chunk, error) {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT chunk_id, doc_id, page, kind, content FROM corpus_chunks ORDER BY chunk_id`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out []core.Chunk
	for rows.Next() {
		var ch core.Chunk
		var kind string
		if err := rows.Scan(&ch.ChunkID, &ch.DocID, &ch.Page, &kind, &ch.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		ch.Kind = core.ChunkKind(kind)
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Stats summarizes the catalog for the operational endpoint.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Captions  int `json:"captions"`
	Pages     int `json:"pages"`
}

// Stats counts documents, chunks, captions and the highest page number seen.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT doc_id), COUNT(*),
		        COUNT(*) FILTER (WHERE kind = 'caption'),
		        COALESCE(MAX(page), 0)
		 FROM corpus_chunks`).
		Scan(&s.Documents, &s.Chunks, &s.Captions, &s.Pages)
	if err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	return s, nil
}
