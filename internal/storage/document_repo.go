package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_registry.go -package=mocks protocol-navigator/internal/storage DocumentRegistry

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentRecord maps an ingested document to its stored source file so the
// corpus can be rebuilt at startup and stale files cleaned up on reset.
type DocumentRecord struct {
	DocID    string // Stable identifier derived from the display name
	DocName  string // Display name as uploaded
	FilePath string // Path of the stored source file under the upload dir
	Pages    int
	Chunks   int
}

// DocumentRegistry defines the interface for the document registry.
type DocumentRegistry interface {
	// Upsert inserts or replaces the record for doc.DocID.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// List returns all records ordered by doc_name for deterministic reloads.
	List(ctx context.Context) ([]*DocumentRecord, error)
	// GetByID gets a record by doc_id. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, docID string) (*DocumentRecord, error)
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error
}

// DocumentRepo provides SQLite-backed document registry operations.
// It implements the DocumentRegistry interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts or replaces the record for doc.DocID.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (doc_id, doc_name, file_path, pages, chunks, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(doc_id) DO UPDATE SET
		   doc_name = excluded.doc_name,
		   file_path = excluded.file_path,
		   pages = excluded.pages,
		   chunks = excluded.chunks,
		   updated_at = CURRENT_TIMESTAMP`,
		doc.DocID, doc.DocName, doc.FilePath, doc.Pages, doc.Chunks,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// List returns all records ordered by doc_name.
func (r *DocumentRepo) List(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT doc_id, doc_name, file_path, pages, chunks FROM documents ORDER BY doc_name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.DocID, &doc.DocName, &doc.FilePath, &doc.Pages, &doc.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// GetByID gets a record by doc_id. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT doc_id, doc_name, file_path, pages, chunks FROM documents WHERE doc_id = ?",
		docID,
	).Scan(&doc.DocID, &doc.DocName, &doc.FilePath, &doc.Pages, &doc.Chunks)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// DeleteAll removes every record.
func (r *DocumentRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
