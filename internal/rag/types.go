package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answer_service.go -package=mocks protocol-navigator/internal/rag AnswerService

import "context"

// Mode selects the retrieval strategy for a question.
type Mode string

const (
	// ModeRAG retrieves the top-k chunks from the sparse similarity index.
	ModeRAG Mode = "rag"
	// ModeLongContext assembles a multi-document context under size budgets.
	ModeLongContext Mode = "long_context"
)

// AnswerService generates answers from an assembled context and estimates
// token counts. The engine only ever passes it a fully assembled,
// budget-respecting context string.
type AnswerService interface {
	// Answer produces an answer for question given contextText. An error
	// signals the service is unavailable or unconfigured; the engine then
	// substitutes a deterministic extractive fallback.
	Answer(ctx context.Context, mode, question, contextText string) (string, error)
	// EstimateTokens counts tokens in text. fast selects the cheap heuristic
	// over an exact (possibly remote) count. Always returns a usable estimate.
	EstimateTokens(ctx context.Context, text string, fast bool) int
}

// AskResponse is the result of answering one question.
type AskResponse struct {
	Mode          Mode       `json:"mode"`
	Answer        string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	LatencyMs     int64      `json:"latency_ms"`
	ContextChunks int        `json:"context_chunks"`
	ContextChars  int        `json:"context_chars"`
	ContextTokens int        `json:"context_tokens"`
}

// Options are the retrieval policy knobs. The numeric values are tunable
// defaults rather than algorithmic constraints.
type Options struct {
	TopK                 int     // Default chunk count for the sparse path and citation ranking
	MaxContextChars      int     // Character ceiling for the assembled context
	MaxContextTokens     int     // Token ceiling for the assembled context
	MaxDocs              int     // Most documents admitted into one context
	CoverageChunksPerDoc int     // Chunks per document in the coverage phase
	DepthBatchSize       int     // Chunks per document per depth-fill sweep
	DocScoreThreshold    float64 // Relative aggregate-score cutoff for document selection
	MinSurvivorDocs      int     // Minimum documents kept when the cutoff is too aggressive
	MaxCitations         int     // Citation list cap
}

// DefaultOptions are the documented policy defaults.
var DefaultOptions = Options{
	TopK:                 8,
	MaxContextChars:      500000,
	MaxContextTokens:     120000,
	MaxDocs:              5,
	CoverageChunksPerDoc: 12,
	DepthBatchSize:       4,
	DocScoreThreshold:    0.35,
	MinSurvivorDocs:      3,
	MaxCitations:         5,
}

func (o Options) withDefaults() Options {
	d := DefaultOptions
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = d.MaxContextChars
	}
	if o.MaxContextTokens <= 0 {
		o.MaxContextTokens = d.MaxContextTokens
	}
	if o.MaxDocs <= 0 {
		o.MaxDocs = d.MaxDocs
	}
	if o.CoverageChunksPerDoc <= 0 {
		o.CoverageChunksPerDoc = d.CoverageChunksPerDoc
	}
	if o.DepthBatchSize <= 0 {
		o.DepthBatchSize = d.DepthBatchSize
	}
	if o.DocScoreThreshold <= 0 {
		o.DocScoreThreshold = d.DocScoreThreshold
	}
	if o.MinSurvivorDocs <= 0 {
		o.MinSurvivorDocs = d.MinSurvivorDocs
	}
	if o.MaxCitations <= 0 {
		o.MaxCitations = d.MaxCitations
	}
	return o
}
