package rag

import (
	"context"
	"sort"

	"protocol-navigator/internal/store"
)

// assembleContext builds the largest document-diverse chunk set that fits the
// character and token ceilings. Chunks must already be sorted by
// (doc_name, page, ordinal). Returns the selection and the running token
// estimate accumulated while filling.
func (e *Engine) assembleContext(ctx context.Context, question string, chunks []store.Chunk) ([]store.Chunk, int) {
	scores := scoreAgainstQuery(question, chunkTexts(chunks))

	docToChunks := make(map[string][]store.Chunk)
	for _, c := range chunks {
		docToChunks[c.DocName] = append(docToChunks[c.DocName], c)
	}

	rankedDocs := rankDocuments(chunks, scores, e.opts.DocScoreThreshold, e.opts.MinSurvivorDocs)
	if len(rankedDocs) > e.opts.MaxDocs {
		rankedDocs = rankedDocs[:e.opts.MaxDocs]
	}

	var selected []store.Chunk
	runningChars := 0
	runningTokens := 0
	pointers := make(map[string]int, len(rankedDocs))

	// addNext admits the next unconsumed chunk of docName unless a ceiling
	// would be exceeded. The ceiling check happens strictly before admission.
	addNext := func(docName string) (added, budgetHit bool) {
		chunkList := docToChunks[docName]
		idx := pointers[docName]
		if idx >= len(chunkList) {
			return false, false
		}

		chunk := chunkList[idx]
		block := FormatChunk(chunk)
		blockTokens := e.answers.EstimateTokens(ctx, block, true)

		if runningChars+len(block) > e.opts.MaxContextChars {
			return false, true
		}
		if runningTokens+blockTokens > e.opts.MaxContextTokens {
			return false, true
		}

		selected = append(selected, chunk)
		pointers[docName] = idx + 1
		runningChars += len(block) + 2
		runningTokens += blockTokens
		return true, false
	}

	// Coverage phase: every ranked document gets a chance to seed the context
	// before any document goes deep.
	for _, docName := range rankedDocs {
		for i := 0; i < e.opts.CoverageChunksPerDoc; i++ {
			added, budgetHit := addNext(docName)
			if budgetHit {
				return selected, runningTokens
			}
			if !added {
				break
			}
		}
	}

	// Depth fill: sweep the ranked documents in batches until a full sweep
	// admits nothing or a ceiling is hit.
	progress := true
	for progress {
		progress = false
		for _, docName := range rankedDocs {
			for i := 0; i < e.opts.DepthBatchSize; i++ {
				added, budgetHit := addNext(docName)
				if budgetHit {
					return selected, runningTokens
				}
				if !added {
					break
				}
				progress = true
			}
		}
	}

	return selected, runningTokens
}

// rankDocuments orders documents by aggregate chunk relevance. The aggregate
// is 0.7*max + 0.3*mean(top 5) over the document's chunk scores. With any
// positive signal, documents at or above threshold*topScore survive; fewer
// than minSurvivors survivors fall back to the top minSurvivors by rank. With
// no signal at all, documents keep their natural encounter order.
func rankDocuments(chunks []store.Chunk, scores []float64, threshold float64, minSurvivors int) []string {
	grouped := make(map[string][]float64)
	var docOrder []string
	for i, c := range chunks {
		if _, ok := grouped[c.DocName]; !ok {
			docOrder = append(docOrder, c.DocName)
		}
		grouped[c.DocName] = append(grouped[c.DocName], scores[i])
	}

	type docScore struct {
		name  string
		score float64
	}
	scored := make([]docScore, 0, len(docOrder))
	maxAggregate := 0.0
	for _, name := range docOrder {
		values := append([]float64(nil), grouped[name]...)
		sort.Sort(sort.Reverse(sort.Float64Slice(values)))

		maxScore := values[0]
		top := values
		if len(top) > 5 {
			top = top[:5]
		}
		var sum float64
		for _, v := range top {
			sum += v
		}
		aggregate := maxScore*0.7 + (sum/float64(len(top)))*0.3
		scored = append(scored, docScore{name: name, score: aggregate})
		if aggregate > maxAggregate {
			maxAggregate = aggregate
		}
	}

	if maxAggregate <= 0 {
		return docOrder
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	cutoff := scored[0].score * threshold
	var survivors []string
	for _, d := range scored {
		if d.score >= cutoff && d.score > 0 {
			survivors = append(survivors, d.name)
		}
	}
	if len(survivors) >= minSurvivors {
		return survivors
	}

	limit := minSurvivors
	if limit > len(scored) {
		limit = len(scored)
	}
	fallback := make([]string, 0, limit)
	for _, d := range scored[:limit] {
		fallback = append(fallback, d.name)
	}
	return fallback
}

// rankRelevant returns the topK chunks of the given set by unigram relevance
// to the question. Sets already within topK come back unchanged.
func rankRelevant(question string, chunks []store.Chunk, topK int) []store.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) <= topK {
		return chunks
	}

	scores := scoreAgainstQuery(question, chunkTexts(chunks))
	ranked := make([]rankedChunk, len(chunks))
	for i := range chunks {
		ranked[i] = rankedChunk{index: i, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	selected := make([]store.Chunk, 0, topK)
	for _, r := range ranked[:topK] {
		selected = append(selected, chunks[r.index])
	}
	return selected
}

// scoreAgainstQuery fits a unigram TF-IDF space over the question plus every
// text and returns per-text cosine similarity to the question. A stop-word
// only vocabulary is refitted without filtering.
func scoreAgainstQuery(question string, texts []string) []float64 {
	corpus := make([]string, 0, len(texts)+1)
	corpus = append(corpus, question)
	corpus = append(corpus, texts...)

	vec, err := fitVectorizer(corpus, 1, true)
	if err != nil {
		vec, err = fitVectorizer(corpus, 1, false)
		if err != nil {
			return make([]float64, len(texts))
		}
	}

	query := vec.transform(question)
	scores := make([]float64, len(texts))
	for i, t := range texts {
		scores[i] = cosine(query, vec.transform(t))
	}
	return scores
}

func chunkTexts(chunks []store.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
