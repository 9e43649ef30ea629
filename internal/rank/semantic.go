// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"math"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// TermVectorScorer is the default secondary relevance signal: cosine
// similarity between term-frequency vectors of the query and each document.
// It is fully local and deterministic, so the hybrid stage stays reproducible
// when no external embedding service is configured.
type TermVectorScorer struct{}

// Name returns the scorer identifier.
func (TermVectorScorer) Name() string { return "term_vector" }

// Score returns one cosine similarity per document, in input order.
func (TermVectorScorer) Score(_ context.Context, query string, docs []types.Document) ([]float64, error) {
	qv := termVector(query)
	scores := make([]float64, len(docs))
	for i, d := range docs {
		scores[i] = cosine(qv, termVector(docText(d)))
	}
	return scores, nil
}

// termVector builds a term-frequency vector from text.
func termVector(text string) map[string]float64 {
	v := make(map[string]float64)
	for _, t := range tokenize(text) {
		v[t]++
	}
	return v
}

// cosine computes the cosine similarity of two sparse vectors. Either vector
// being empty yields 0.
func cosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for t, x := range a {
		na += x * x
		if y, ok := b[t]; ok {
			dot += x * y
		}
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
