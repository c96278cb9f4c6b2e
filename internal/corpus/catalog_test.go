package corpus

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"draftqa/internal/agent/core"
)

func TestCatalogChunks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	query := regexp.QuoteMeta(`SELECT chunk_id, doc_id, page, kind, content FROM corpus_chunks ORDER BY chunk_id`)
	rows := sqlmock.NewRows([]string{"chunk_id", "doc_id", "page", "kind", "content"}).
		AddRow("c1", "d1", 1, "text", "Highway clearance rules.").
		AddRow("c2", "d1", 2, "caption", "Figure 3 - cross section")
	mock.ExpectQuery(query).WillReturnRows(rows)

	catalog := New(db)
	chunks, err := catalog.Chunks(context.Background())
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].ChunkID != "c1" || chunks[0].Kind != core.ChunkKindText {
		t.Fatalf("chunk[0] = %+v", chunks[0])
	}
	if chunks[1].Kind != core.ChunkKindCaption || chunks[1].Page != 2 {
		t.Fatalf("chunk[1] = %+v", chunks[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"documents", "chunks", "captions", "pages"}).
		AddRow(2, 40, 8, 17)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(rows)

	catalog := New(db)
	stats, err := catalog.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents != 2 || stats.Chunks != 40 || stats.Captions != 8 || stats.Pages != 17 {
		t.Fatalf("stats = %+v", stats)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogChunksQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT chunk_id").WillReturnError(context.DeadlineExceeded)

	catalog := New(db)
	if _, err := catalog.Chunks(context.Background()); err == nil {
		t.Fatal("expected error from failing query")
	}
}
