package store

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultOptions are the chunking policy defaults.
var DefaultOptions = Options{
	ChunkSize:      1400,
	OversizeFactor: 1.3,
	PageCharLimit:  3500,
	StitchMinChars: 240,
	RedactPII:      true,
}

// Options are the ingestion policy knobs. Zero values fall back to defaults.
type Options struct {
	ChunkSize      int     // Target chunk size in characters
	OversizeFactor float64 // Paragraphs above ChunkSize*OversizeFactor are split independently
	PageCharLimit  int     // Pseudo-page cutoff for plain-text sources
	StitchMinChars int     // Minimum stitched-sentence length in the line-stitching fallback
	RedactPII      bool    // Run the PII transform on each paragraph before chunking
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultOptions.ChunkSize
	}
	if o.OversizeFactor <= 0 {
		o.OversizeFactor = DefaultOptions.OversizeFactor
	}
	if o.PageCharLimit <= 0 {
		o.PageCharLimit = DefaultOptions.PageCharLimit
	}
	if o.StitchMinChars <= 0 {
		o.StitchMinChars = DefaultOptions.StitchMinChars
	}
	return o
}

// DefaultExtensions returns the ingestable file extensions.
func DefaultExtensions() map[string]struct{} {
	return map[string]struct{}{".pdf": {}, ".txt": {}, ".md": {}}
}

// Store holds the current chunk corpus grouped by document. Mutations are
// serialized; readers always observe a fully published generation. The version
// counter increments once per mutating operation and exists only so retrieval
// caches can detect corpus changes.
type Store struct {
	uploadDir string
	opts      Options
	logger    *slog.Logger

	mu       sync.RWMutex
	chunks   []Chunk
	docs     map[string]DocumentInfo
	docOrder []string
	version  int64
}

// New creates a Store rooted at uploadDir (created if missing).
func New(uploadDir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{
		uploadDir: uploadDir,
		opts:      opts.withDefaults(),
		logger:    slog.Default(),
		docs:      make(map[string]DocumentInfo),
	}, nil
}

// UploadDir returns the directory uploaded source files are stored under.
func (s *Store) UploadDir() string {
	return s.uploadDir
}

// Version returns the current corpus version.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ListDocuments returns document summaries in ingestion order.
func (s *Store) ListDocuments() []DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]DocumentInfo, 0, len(s.docOrder))
	for _, docID := range s.docOrder {
		infos = append(infos, s.docs[docID])
	}
	return infos
}

// AllChunks returns all chunks across all documents in insertion order.
// The returned slice is a copy and stays stable across later mutations.
func (s *Store) AllChunks() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// IngestFile extracts, segments and chunks a source file under displayName.
// Re-ingesting the same display name replaces all prior chunks for that
// document. Malformed content degrades to zero chunks rather than an error;
// the returned error covers only unreadable plain-text sources.
func (s *Store) IngestFile(path, displayName string) (DocumentInfo, error) {
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	pages, err := s.extractPages(path)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			// Malformed PDFs yield an empty document instead of an error.
			s.logger.Warn("pdf extraction failed", "path", path, "error", err)
			pages = []string{""}
		} else {
			return DocumentInfo{}, fmt.Errorf("failed to read source file: %w", err)
		}
	}

	docID := DocID(displayName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[docID]; exists {
		s.removeDocLocked(docID)
	}

	var docChunks []Chunk
	ordinal := 0
	for pageIdx, pageText := range pages {
		paragraphs := splitPageParagraphs(pageText, s.opts.StitchMinChars)
		if len(paragraphs) == 0 {
			continue
		}

		if s.opts.RedactPII {
			for i, p := range paragraphs {
				paragraphs[i] = redactPII(p)
			}
		}

		for _, packed := range packParagraphs(paragraphs, s.opts.ChunkSize, s.opts.OversizeFactor) {
			docChunks = append(docChunks, Chunk{
				ChunkID:        fmt.Sprintf("%s:%d", docID, ordinal),
				DocID:          docID,
				DocName:        displayName,
				Page:           pageIdx + 1,
				ParagraphStart: packed.paraStart,
				ParagraphEnd:   packed.paraEnd,
				Ordinal:        ordinal,
				Text:           packed.text,
			})
			ordinal++
		}
	}

	s.chunks = append(s.chunks, docChunks...)
	info := DocumentInfo{DocID: docID, DocName: displayName, Pages: len(pages), Chunks: len(docChunks)}
	s.docs[docID] = info
	s.docOrder = append(s.docOrder, docID)
	s.version++

	s.logger.Info("ingested document", "doc_id", docID, "doc_name", displayName, "pages", len(pages), "chunks", len(docChunks))
	return info, nil
}

// IngestFolder ingests every file under dir whose extension is in allowedExts,
// sorted by name for determinism. A missing or non-directory path returns an
// empty result rather than an error.
func (s *Store) IngestFolder(dir string, allowedExts map[string]struct{}) []DocumentInfo {
	if allowedExts == nil {
		allowedExts = DefaultExtensions()
	}

	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var infos []DocumentInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowedExts[ext]; !ok {
			continue
		}
		info, err := s.IngestFile(filepath.Join(dir, entry.Name()), entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable file", "path", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Clear removes all chunks and documents. When deleteFiles is true, stored
// source files under the upload directory are deleted best-effort; individual
// deletion failures are swallowed.
func (s *Store) Clear(deleteFiles bool) {
	s.mu.Lock()
	s.chunks = nil
	s.docs = make(map[string]DocumentInfo)
	s.docOrder = nil
	s.version++
	s.mu.Unlock()

	if !deleteFiles {
		return
	}

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return
	}
	allowed := DefaultExtensions()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			s.logger.Warn("failed to delete stored file", "name", entry.Name(), "error", err)
		}
	}
}

// removeDocLocked drops every chunk of docID. Caller holds the write lock.
func (s *Store) removeDocLocked(docID string) {
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocID != docID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	delete(s.docs, docID)
	for i, id := range s.docOrder {
		if id == docID {
			s.docOrder = append(s.docOrder[:i], s.docOrder[i+1:]...)
			break
		}
	}
}

// DocID derives a stable document identifier from a display name.
func DocID(displayName string) string {
	digest := sha256.Sum256([]byte(displayName))
	return fmt.Sprintf("%x", digest)[:12]
}
