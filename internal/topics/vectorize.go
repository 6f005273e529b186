// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// SparseVec is a document vector holding only non-zero weights, with Idx
// sorted ascending.
type SparseVec struct {
	Idx []int
	Val []float64
}

// Vectorizer builds L2-normalized TF-IDF vectors over word unigrams and
// bigrams with English stop words removed.
type Vectorizer struct {
	// MaxFeatures caps the vocabulary to the most frequent terms (0 = no cap).
	MaxFeatures int

	// NGramMax is the longest n-gram generated (1 or 2; default 2).
	NGramMax int

	vocab map[string]int
	terms []string
	idf   []float64
}

// wordTokens lowercases text and splits it into runs of letters, digits or
// underscores at least two runes long.
func wordTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

func (v *Vectorizer) analyze(text string) []string {
	var words []string
	for _, w := range wordTokens(text) {
		if !englishStopWords[w] {
			words = append(words, w)
		}
	}
	nmax := v.NGramMax
	if nmax <= 0 {
		nmax = 2
	}
	grams := append([]string(nil), words...)
	if nmax >= 2 {
		for i := 0; i+1 < len(words); i++ {
			grams = append(grams, words[i]+" "+words[i+1])
		}
	}
	return grams
}

// Fit learns the vocabulary and inverse document frequencies from docs.
// When MaxFeatures is set the vocabulary keeps the terms with the highest
// corpus frequency, ties broken alphabetically. Term indices follow
// alphabetical order.
func (v *Vectorizer) Fit(docs []string) {
	freq := make(map[string]int)
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool)
		for _, g := range v.analyze(d) {
			freq[g]++
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if freq[terms[i]] != freq[terms[j]] {
				return freq[terms[i]] > freq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
}

// Transform converts docs into TF-IDF vectors over the fitted vocabulary.
// Documents with no known terms yield empty vectors.
func (v *Vectorizer) Transform(docs []string) []SparseVec {
	out := make([]SparseVec, len(docs))
	for i, d := range docs {
		counts := make(map[int]float64)
		for _, g := range v.analyze(d) {
			if idx, ok := v.vocab[g]; ok {
				counts[idx]++
			}
		}
		vec := SparseVec{Idx: make([]int, 0, len(counts))}
		for idx := range counts {
			vec.Idx = append(vec.Idx, idx)
		}
		sort.Ints(vec.Idx)
		vec.Val = make([]float64, len(vec.Idx))
		var norm float64
		for k, idx := range vec.Idx {
			w := counts[idx] * v.idf[idx]
			vec.Val[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range vec.Val {
				vec.Val[k] /= norm
			}
		}
		out[i] = vec
	}
	return out
}

// FitTransform is Fit followed by Transform on the same docs.
func (v *Vectorizer) FitTransform(docs []string) []SparseVec {
	v.Fit(docs)
	return v.Transform(docs)
}

// Terms returns the vocabulary in index order.
func (v *Vectorizer) Terms() []string {
	return v.terms
}
