package rag

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"protocol-navigator/internal/rag/mocks"
	"protocol-navigator/internal/store"
)

func scoredChunks(scores map[string]float64) ([]store.Chunk, []float64) {
	names := []string{"doc-a", "doc-b", "doc-c", "doc-d", "doc-e"}
	var chunks []store.Chunk
	var values []float64
	for _, name := range names {
		if score, ok := scores[name]; ok {
			chunks = append(chunks, makeChunk(name, 1, 0, "text for "+name))
			values = append(values, score)
		}
	}
	return chunks, values
}

func TestRankDocuments_RelativeThreshold(t *testing.T) {
	// Aggregate scores 1.0, 0.9, 0.5, 0.3, 0.1 against cutoff 0.35*1.0:
	// three survive on their own, so no fallback is needed.
	chunks, scores := scoredChunks(map[string]float64{
		"doc-a": 1.0, "doc-b": 0.9, "doc-c": 0.5, "doc-d": 0.3, "doc-e": 0.1,
	})

	got := rankDocuments(chunks, scores, 0.35, 3)
	want := []string{"doc-a", "doc-b", "doc-c"}
	if len(got) != len(want) {
		t.Fatalf("rankDocuments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rankDocuments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRankDocuments_MinSurvivorFallback(t *testing.T) {
	// Only doc-a clears 0.35*1.0, so the top three by rank come back instead.
	chunks, scores := scoredChunks(map[string]float64{
		"doc-a": 1.0, "doc-b": 0.2, "doc-c": 0.1, "doc-d": 0.05, "doc-e": 0.01,
	})

	got := rankDocuments(chunks, scores, 0.35, 3)
	want := []string{"doc-a", "doc-b", "doc-c"}
	if len(got) != len(want) {
		t.Fatalf("rankDocuments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rankDocuments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRankDocuments_ZeroSignalKeepsEncounterOrder(t *testing.T) {
	chunks, scores := scoredChunks(map[string]float64{
		"doc-a": 0, "doc-b": 0, "doc-c": 0,
	})

	got := rankDocuments(chunks, scores, 0.35, 3)
	want := []string{"doc-a", "doc-b", "doc-c"}
	if len(got) != len(want) {
		t.Fatalf("rankDocuments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rankDocuments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRankDocuments_AggregateUsesMaxAndMean(t *testing.T) {
	// doc-a has one strong chunk, doc-b many mediocre ones. The 0.7*max
	// weighting must put doc-a first.
	chunks := []store.Chunk{
		makeChunk("doc-a", 1, 0, "strong"),
		makeChunk("doc-b", 1, 0, "weak"),
		makeChunk("doc-b", 1, 1, "weak"),
		makeChunk("doc-b", 1, 2, "weak"),
	}
	scores := []float64{0.9, 0.5, 0.5, 0.5}

	got := rankDocuments(chunks, scores, 0.35, 1)
	if got[0] != "doc-a" {
		t.Errorf("rankDocuments()[0] = %q, want doc-a", got[0])
	}
}

func TestAssembleContext_BudgetRespected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	answers := mocks.NewMockAnswerService(ctrl)
	answers.EXPECT().
		EstimateTokens(gomock.Any(), gomock.Any(), true).
		DoAndReturn(func(_ context.Context, text string, _ bool) int {
			n := len(text) / 4
			if n < 1 {
				n = 1
			}
			return n
		}).
		AnyTimes()

	var chunks []store.Chunk
	for doc := 0; doc < 3; doc++ {
		name := string(rune('a'+doc)) + ".txt"
		for i := 0; i < 20; i++ {
			chunks = append(chunks, makeChunk(name, 1, i, strings.Repeat("warfarin dosing text ", 20)))
		}
	}

	const maxChars = 3000
	engine := NewEngine(&stubSource{chunks: chunks, version: 1}, answers, Options{
		MaxContextChars: maxChars,
		// High token ceiling so the character ceiling binds.
		MaxContextTokens: 1 << 20,
	})

	selected, tokens := engine.assembleContext(context.Background(), "warfarin dosing", sortForAssembly(chunks))

	if len(selected) == 0 {
		t.Fatal("assembleContext() selected nothing under a generous budget")
	}
	total := 0
	for _, c := range selected {
		total += len(FormatChunk(c))
	}
	if total > maxChars {
		t.Errorf("assembled context %d chars exceeds ceiling %d", total, maxChars)
	}
	if tokens <= 0 {
		t.Errorf("running token estimate = %d, want positive", tokens)
	}
}

func TestAssembleContext_TokenCeiling(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	answers := mocks.NewMockAnswerService(ctrl)
	// Every block claims 100 tokens, so a ceiling of 250 admits two chunks.
	answers.EXPECT().
		EstimateTokens(gomock.Any(), gomock.Any(), true).
		Return(100).
		AnyTimes()

	chunks := []store.Chunk{
		makeChunk("a.txt", 1, 0, "warfarin dosing alpha"),
		makeChunk("a.txt", 1, 1, "warfarin dosing beta"),
		makeChunk("a.txt", 1, 2, "warfarin dosing gamma"),
	}
	engine := NewEngine(&stubSource{chunks: chunks, version: 1}, answers, Options{
		MaxContextChars:  1 << 20,
		MaxContextTokens: 250,
	})

	selected, tokens := engine.assembleContext(context.Background(), "warfarin dosing", sortForAssembly(chunks))
	if len(selected) != 2 {
		t.Fatalf("assembleContext() = %d chunks, want 2 under the token ceiling", len(selected))
	}
	if tokens != 200 {
		t.Errorf("running tokens = %d, want 200", tokens)
	}
}

func TestAssembleContext_CoverageBeforeDepth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	answers := mocks.NewMockAnswerService(ctrl)
	answers.EXPECT().
		EstimateTokens(gomock.Any(), gomock.Any(), true).
		Return(1).
		AnyTimes()

	var chunks []store.Chunk
	for doc := 0; doc < 2; doc++ {
		name := string(rune('a'+doc)) + ".txt"
		for i := 0; i < 4; i++ {
			chunks = append(chunks, makeChunk(name, 1, i, "shared warfarin dosing content"))
		}
	}
	engine := NewEngine(&stubSource{chunks: chunks, version: 1}, answers, Options{
		CoverageChunksPerDoc: 2,
		DepthBatchSize:       2,
	})

	selected, _ := engine.assembleContext(context.Background(), "warfarin dosing", sortForAssembly(chunks))
	if len(selected) != 8 {
		t.Fatalf("assembleContext() = %d chunks, want all 8", len(selected))
	}
	// First four admissions are the coverage phase: two per document.
	coverage := selected[:4]
	perDoc := map[string]int{}
	for _, c := range coverage {
		perDoc[c.DocName]++
	}
	if perDoc["a.txt"] != 2 || perDoc["b.txt"] != 2 {
		t.Errorf("coverage phase admitted %v, want two chunks per document", perDoc)
	}
}

func TestRankRelevant(t *testing.T) {
	chunks := []store.Chunk{
		makeChunk("a.txt", 1, 0, "warfarin dosing adjustment guidance"),
		makeChunk("a.txt", 1, 1, "surgical consent checklist items"),
		makeChunk("a.txt", 1, 2, "warfarin interaction warnings"),
	}

	got := rankRelevant("warfarin dosing", chunks, 2)
	if len(got) != 2 {
		t.Fatalf("rankRelevant() = %d chunks, want 2", len(got))
	}
	for _, c := range got {
		if strings.Contains(c.Text, "consent") {
			t.Error("rankRelevant() kept the least relevant chunk")
		}
	}

	// A set already within topK comes back unchanged.
	same := rankRelevant("anything", chunks, 5)
	if len(same) != 3 {
		t.Errorf("rankRelevant() = %d chunks, want all 3 unchanged", len(same))
	}
}

func TestScoreAgainstQuery_StopwordOnlyCorpus(t *testing.T) {
	scores := scoreAgainstQuery("the and of", []string{"the and of", "is was were"})
	if len(scores) != 2 {
		t.Fatalf("scoreAgainstQuery() = %d scores, want 2", len(scores))
	}
	// Refit without filtering still yields a positive self match.
	if scores[0] <= 0 {
		t.Errorf("scores[0] = %v, want positive after stop-word fallback", scores[0])
	}
}
