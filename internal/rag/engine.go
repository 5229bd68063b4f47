package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/store"
)

const noDocumentsAnswer = "No documents are loaded."

// Engine answers questions against the chunk corpus. It owns the sparse
// similarity index for the RAG path and runs the budget assembler for the
// long-context path; both paths are read-only consumers of the chunk source.
type Engine struct {
	source  ChunkSource
	answers AnswerService
	index   *Index
	opts    Options
	logger  *slog.Logger
}

// NewEngine creates an engine over source that generates answers with answers.
func NewEngine(source ChunkSource, answers AnswerService, opts Options) *Engine {
	return &Engine{
		source:  source,
		answers: answers,
		index:   NewIndex(source),
		opts:    opts.withDefaults(),
		logger:  slog.Default(),
	}
}

// Ask answers question using the given retrieval mode. topK <= 0 falls back
// to the configured default. As long as the corpus is non-empty the response
// is always usable; retrieval and answering degrade internally instead of
// returning errors.
func (e *Engine) Ask(ctx context.Context, question string, topK int, mode Mode) AskResponse {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if mode != ModeLongContext {
		mode = ModeRAG
	}
	if topK <= 0 {
		topK = e.opts.TopK
	}

	chunks := e.source.AllChunks()
	if len(chunks) == 0 {
		return AskResponse{
			Mode:      mode,
			Answer:    noDocumentsAnswer,
			Citations: []Citation{},
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	var selected []store.Chunk
	var citationSource []store.Chunk
	var contextTokens int

	switch mode {
	case ModeLongContext:
		ordered := sortForAssembly(chunks)
		selected, contextTokens = e.assembleContext(ctx, question, ordered)
		if len(selected) == 0 {
			// Degenerate scoring: fall back to the global top-k selection.
			fallbackK := topK
			if fallbackK < 1 {
				fallbackK = 1
			}
			selected = rankRelevant(question, ordered, fallbackK)
			contextTokens = e.answers.EstimateTokens(ctx, joinBlocks(selected), true)
		}
		citationSource = rankRelevant(question, selected, topK)
	default:
		selected = e.index.TopK(question, topK)
		citationSource = selected
	}

	contextText := joinBlocks(selected)
	if mode == ModeRAG {
		contextTokens = e.answers.EstimateTokens(ctx, contextText, true)
	}

	answer, err := e.answers.Answer(ctx, string(mode), question, contextText)
	if err != nil {
		logger.WarnContext(ctx, "answer service unavailable, using extractive fallback",
			"mode", mode, "error", err)
		relevant := citationSource
		if mode == ModeRAG {
			relevant = selected
		}
		answer = fmt.Sprintf("LLM fallback: %v\n\n%s", err, extractiveAnswer(question, relevant))
	}

	response := AskResponse{
		Mode:          mode,
		Answer:        answer,
		Citations:     BuildCitations(citationSource, e.opts.MaxCitations),
		LatencyMs:     time.Since(start).Milliseconds(),
		ContextChunks: len(selected),
		ContextChars:  len(contextText),
		ContextTokens: contextTokens,
	}

	logger.InfoContext(ctx, "question answered",
		"mode", mode,
		"top_k", topK,
		"context_chunks", response.ContextChunks,
		"context_chars", response.ContextChars,
		"context_tokens", response.ContextTokens,
		"latency_ms", response.LatencyMs,
	)
	return response
}

// sortForAssembly orders chunks by (doc_name, page, ordinal) so the assembler
// walks each document front to back regardless of interleaved ingestion.
func sortForAssembly(chunks []store.Chunk) []store.Chunk {
	ordered := make([]store.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.DocName != b.DocName {
			return a.DocName < b.DocName
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Ordinal < b.Ordinal
	})
	return ordered
}
