package rag

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

var errEmptyVocabulary = errors.New("corpus produced no indexable terms")

// sparseVec is an L2-normalized term-weight vector keyed by vocabulary index.
type sparseVec map[int]float64

// vectorizer projects texts into a TF-IDF term-vector space. ngramMax selects
// word unigrams (1) or unigrams plus bigrams (2); stop-word filtering happens
// before n-gram formation.
type vectorizer struct {
	ngramMax    int
	filterStops bool
	vocab       map[string]int
	idf         []float64
}

// fitVectorizer builds the vocabulary and smoothed IDF weights from texts.
// Returns errEmptyVocabulary when the corpus reduces to nothing indexable
// (for example stop words only).
func fitVectorizer(texts []string, ngramMax int, filterStops bool) (*vectorizer, error) {
	v := &vectorizer{ngramMax: ngramMax, filterStops: filterStops}

	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range v.terms(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, errEmptyVocabulary
	}

	// Stable vocabulary ordering keeps vector layouts deterministic.
	ordered := make([]string, 0, len(df))
	for term := range df {
		ordered = append(ordered, term)
	}
	sort.Strings(ordered)

	v.vocab = make(map[string]int, len(ordered))
	v.idf = make([]float64, len(ordered))
	n := float64(len(texts))
	for i, term := range ordered {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v, nil
}

// transform projects text into the fitted space. Terms outside the vocabulary
// are ignored; the result is L2-normalized so cosine similarity is a dot
// product.
func (v *vectorizer) transform(text string) sparseVec {
	vec := make(sparseVec)
	for _, term := range v.terms(text) {
		if idx, ok := v.vocab[term]; ok {
			vec[idx] += v.idf[idx]
		}
	}

	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// terms tokenizes text and expands it into the configured n-gram set.
func (v *vectorizer) terms(text string) []string {
	tokens := tokenize(text)
	if v.filterStops {
		tokens = dropStopwords(tokens)
	}
	if len(tokens) == 0 {
		return nil
	}

	terms := make([]string, 0, len(tokens)*v.ngramMax)
	terms = append(terms, tokens...)
	if v.ngramMax >= 2 {
		for i := 0; i+1 < len(tokens); i++ {
			terms = append(terms, tokens[i]+" "+tokens[i+1])
		}
	}
	return terms
}

// cosine returns the similarity of two normalized sparse vectors.
func cosine(a, b sparseVec) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		dot += w * b[idx]
	}
	return dot
}

// tokenize lowercases text and splits it into alphanumeric word tokens of at
// least two characters.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	fields := strings.Fields(builder.String())
	tokens := fields[:0]
	for _, tok := range fields {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func dropStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := stopwords[tok]; isStop {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		"about", "above", "after", "again", "all", "also", "an", "and", "any", "are",
		"as", "at", "be", "because", "been", "before", "being", "below", "between",
		"both", "but", "by", "can", "could", "did", "do", "does", "doing", "down",
		"during", "each", "few", "for", "from", "further", "had", "has", "have",
		"having", "he", "her", "here", "hers", "him", "his", "how", "if", "in",
		"into", "is", "it", "its", "itself", "just", "more", "most", "my", "no",
		"nor", "not", "now", "of", "off", "on", "once", "only", "or", "other",
		"our", "out", "over", "own", "same", "she", "should", "so", "some", "such",
		"than", "that", "the", "their", "them", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up", "very",
		"was", "we", "were", "what", "when", "where", "which", "while", "who",
		"whom", "why", "will", "with", "would", "you", "your", "yours",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
