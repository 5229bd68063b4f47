package rag

import (
	"sort"
	"sync"

	"protocol-navigator/internal/store"
)

// ChunkSource is the read side of the chunk store consumed by retrieval.
type ChunkSource interface {
	// AllChunks returns a stable snapshot of the corpus in insertion order.
	AllChunks() []store.Chunk
	// Version is the corpus version used for cache invalidation.
	Version() int64
}

// Index ranks chunks against a query by lexical similarity over a TF-IDF
// space of word unigrams and bigrams. The built space is cached together with
// the store version it was built from and rebuilt lazily when the version
// moves; the (version, space) pair is only read or replaced inside a single
// critical section, so a concurrent query never sees a fresh version paired
// with a stale space.
type Index struct {
	source ChunkSource

	mu      sync.Mutex
	built   bool
	version int64
	vec     *vectorizer
	matrix  []sparseVec
	chunks  []store.Chunk
}

// NewIndex creates an index over source. Nothing is built until first use.
func NewIndex(source ChunkSource) *Index {
	return &Index{source: source}
}

// TopK returns the k most similar chunks to question, ranked descending.
// Chunks with strictly positive similarity win; when there is no lexical
// overlap at all, the top k by rank are returned instead so retrieval never
// comes back empty while the corpus is non-empty.
func (ix *Index) TopK(question string, k int) []store.Chunk {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.ensureLocked()
	if len(ix.chunks) == 0 || k <= 0 {
		return nil
	}

	query := ix.vec.transform(question)
	ranked := rankBySimilarity(query, ix.matrix)

	if k > len(ranked) {
		k = len(ranked)
	}
	selected := make([]store.Chunk, 0, k)
	for _, r := range ranked[:k] {
		if r.score > 0 {
			selected = append(selected, ix.chunks[r.index])
		}
	}
	if len(selected) == 0 {
		for _, r := range ranked[:k] {
			selected = append(selected, ix.chunks[r.index])
		}
	}
	return selected
}

// ensureLocked rebuilds the vector space if the corpus changed. A corpus that
// reduces to stop words only is retried without stop-word filtering rather
// than surfacing an error.
func (ix *Index) ensureLocked() {
	current := ix.source.Version()
	if ix.built && ix.version == current {
		return
	}

	chunks := ix.source.AllChunks()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vec *vectorizer
	if len(texts) > 0 {
		var err error
		vec, err = fitVectorizer(texts, 2, true)
		if err != nil {
			vec, err = fitVectorizer(texts, 2, false)
			if err != nil {
				vec = &vectorizer{ngramMax: 2, vocab: map[string]int{}}
			}
		}
	} else {
		vec = &vectorizer{ngramMax: 2, vocab: map[string]int{}}
	}

	matrix := make([]sparseVec, len(texts))
	for i, t := range texts {
		matrix[i] = vec.transform(t)
	}

	ix.built = true
	ix.version = current
	ix.vec = vec
	ix.matrix = matrix
	ix.chunks = chunks
}

type rankedChunk struct {
	index int
	score float64
}

// rankBySimilarity scores each row against query and sorts descending. The
// sort is stable so equal scores keep corpus order and repeated calls return
// identical sequences.
func rankBySimilarity(query sparseVec, matrix []sparseVec) []rankedChunk {
	ranked := make([]rankedChunk, len(matrix))
	for i, row := range matrix {
		ranked[i] = rankedChunk{index: i, score: cosine(query, row)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked
}
