// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders candidate documents by relevance to a query. The
// pipeline runs a BM25 lexical stage over the candidate set passed in, an
// optional title-boost stage, an optional hybrid stage combining a secondary
// relevance signal, and an optional cross-encoder stage over the shortlist.
//
// Every stage is deterministic: corpus statistics are computed from the
// call's documents only, never from a persistent index, so identical
// (query, documents, config) always yields bit-identical output.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// Scorer produces a secondary relevance score per document (e.g. an
// embedding-similarity service). Implementations must return one score per
// input document, in input order.
type Scorer interface {
	Name() string
	Score(ctx context.Context, query string, docs []types.Document) ([]float64, error)
}

// CrossEncoder scores (query, document) pairs jointly. It is an optional
// external collaborator; the pipeline fails open when it errors.
type CrossEncoder interface {
	Name() string
	Score(ctx context.Context, query string, docs []types.Document) ([]float64, error)
}

// Pipeline composes the ranking stages. Secondary and Cross may be nil; the
// corresponding stages are then skipped regardless of configuration.
type Pipeline struct {
	Config    types.RankConfig
	Secondary Scorer
	Cross     CrossEncoder
}

// Output holds the ranked results and any stage warnings. Warnings record
// fail-open degradations (e.g. an unavailable cross-encoder); they never
// indicate a partial result set.
type Output struct {
	Results  []types.RankedResult
	Warnings []string
}

// Rank scores documents against the query and returns the top K results in
// descending score order, ties broken by input order. A topK of zero or less
// returns all documents.
func (p *Pipeline) Rank(ctx context.Context, query string, docs []types.Document, topK int) (Output, error) {
	if len(docs) == 0 {
		return Output{}, nil
	}

	var out Output

	lexical, secondary, secErr := p.computeSignals(ctx, query, docs)

	if p.Config.EnableFieldBoost {
		applyTitleBoost(lexical, query, docs, p.Config.TitleBoost)
	}

	results := orderByScore(docs, lexical)

	if p.Config.EnableHybrid && p.Secondary != nil {
		if secErr != nil {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("secondary scorer %s failed, lexical ranking only: %v", p.Secondary.Name(), secErr))
		} else {
			results = p.combine(results, orderByScore(docs, secondary))
		}
	}

	if p.Config.EnableCrossEncoder && p.Cross != nil {
		results = p.rerankShortlist(ctx, query, results, &out.Warnings)
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	out.Results = results
	return out, nil
}

// computeSignals evaluates the lexical and secondary signals concurrently.
// The secondary error is reported separately so the caller can degrade to
// lexical-only ranking.
func (p *Pipeline) computeSignals(ctx context.Context, query string, docs []types.Document) (lexical, secondary []float64, secErr error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lexical = bm25Scores(query, docs, p.Config.BM25K1, p.Config.BM25B)
		return nil
	})

	if p.Config.EnableHybrid && p.Secondary != nil {
		g.Go(func() error {
			secondary, secErr = p.Secondary.Score(gctx, query, docs)
			if secErr == nil && len(secondary) != len(docs) {
				secErr = fmt.Errorf("scorer %s returned %d scores for %d documents",
					p.Secondary.Name(), len(secondary), len(docs))
			}
			return nil
		})
	}

	g.Wait()
	return lexical, secondary, secErr
}

// combine merges the lexical and secondary rankings per the configured
// strategy.
func (p *Pipeline) combine(lexical, secondary []types.RankedResult) []types.RankedResult {
	switch p.Config.Strategy {
	case types.HybridWeighted:
		return weightedCombine(lexical, secondary, p.Config.HybridWeight)
	default:
		k := p.Config.RRFK
		if k <= 0 {
			k = 60
		}
		return FuseRankings([][]types.RankedResult{lexical, secondary}, k)
	}
}

// rerankShortlist sends the top-N results to the cross-encoder and reorders
// that shortlist by its scores. On any collaborator error the incoming order
// is kept and a warning recorded.
func (p *Pipeline) rerankShortlist(ctx context.Context, query string, results []types.RankedResult, warnings *[]string) []types.RankedResult {
	n := p.Config.CrossEncoderTopN
	if n <= 0 || n > len(results) {
		n = len(results)
	}
	if n == 0 {
		return results
	}

	shortlist := make([]types.Document, n)
	for i := 0; i < n; i++ {
		shortlist[i] = results[i].Document
	}

	scores, err := p.Cross.Score(ctx, query, shortlist)
	if err != nil || len(scores) != n {
		if err == nil {
			err = fmt.Errorf("returned %d scores for %d documents", len(scores), n)
		}
		*warnings = append(*warnings,
			fmt.Sprintf("cross-encoder %s unavailable, keeping hybrid order: %v", p.Cross.Name(), err))
		return results
	}

	reranked := orderByScore(shortlist, scores)
	return append(reranked, results[n:]...)
}

// tokenize lower-cases text and splits on non-alphanumeric boundaries.
// Empty text yields no tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// docText returns the searchable text of a document. Empty title or abstract
// is treated as empty text, not an error.
func docText(d types.Document) string {
	return d.Title + " " + d.Abstract
}

// bm25Scores computes Okapi BM25 scores for every document against the query.
// Document-frequency statistics come from this candidate set alone.
func bm25Scores(query string, docs []types.Document, k1, b float64) []float64 {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b < 0 || b > 1 {
		b = 0.75
	}

	terms := uniqueTokens(query)
	docTokens := make([][]string, len(docs))
	totalLen := 0
	for i, d := range docs {
		docTokens[i] = tokenize(docText(d))
		totalLen += len(docTokens[i])
	}

	avgLen := float64(totalLen) / float64(len(docs))
	scores := make([]float64, len(docs))
	if avgLen == 0 {
		return scores
	}

	// Document frequency per query term over this candidate set.
	df := make(map[string]int, len(terms))
	for _, toks := range docTokens {
		seen := map[string]bool{}
		for _, t := range toks {
			seen[t] = true
		}
		for _, term := range terms {
			if seen[term] {
				df[term]++
			}
		}
	}

	n := float64(len(docs))
	for i, toks := range docTokens {
		tf := map[string]int{}
		for _, t := range toks {
			tf[t]++
		}
		dlen := float64(len(toks))
		for _, term := range terms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			scores[i] += idf * f * (k1 + 1) / (f + k1*(1-b+b*dlen/avgLen))
		}
	}
	return scores
}

// uniqueTokens returns the query tokens with duplicates removed, first
// occurrence order preserved.
func uniqueTokens(text string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, t := range tokenize(text) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// applyTitleBoost adds a fixed bonus per query term appearing verbatim in the
// title. The bonus is additive on top of the lexical score, never a
// replacement.
func applyTitleBoost(scores []float64, query string, docs []types.Document, boost float64) {
	if boost == 0 {
		return
	}
	terms := uniqueTokens(query)
	for i, d := range docs {
		title := map[string]bool{}
		for _, t := range tokenize(d.Title) {
			title[t] = true
		}
		for _, term := range terms {
			if title[term] {
				scores[i] += boost
			}
		}
	}
}

// orderByScore pairs documents with scores and sorts descending, preserving
// input order for ties.
func orderByScore(docs []types.Document, scores []float64) []types.RankedResult {
	results := make([]types.RankedResult, len(docs))
	for i, d := range docs {
		results[i] = types.RankedResult{Score: scores[i], Document: d}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// weightedCombine merges two rankings of the same document set as a weighted
// sum of min-max normalized scores. lexWeight is the lexical share in [0,1].
func weightedCombine(lexical, secondary []types.RankedResult, lexWeight float64) []types.RankedResult {
	if lexWeight < 0 || lexWeight > 1 {
		lexWeight = 0.7
	}

	lexNorm := normalizedByID(lexical)
	secNorm := normalizedByID(secondary)

	combined := make([]types.RankedResult, len(lexical))
	for i, r := range lexical {
		combined[i] = types.RankedResult{
			Score:    lexWeight*lexNorm[r.Document.ID] + (1-lexWeight)*secNorm[r.Document.ID],
			Document: r.Document,
		}
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Score > combined[j].Score
	})
	return combined
}

// normalizedByID min-max normalizes a ranking's scores into [0,1] keyed by
// document ID. A constant score vector normalizes to all zeros.
func normalizedByID(results []types.RankedResult) map[string]float64 {
	norm := make(map[string]float64, len(results))
	if len(results) == 0 {
		return norm
	}

	lo, hi := results[0].Score, results[0].Score
	for _, r := range results {
		lo = math.Min(lo, r.Score)
		hi = math.Max(hi, r.Score)
	}
	span := hi - lo
	for _, r := range results {
		if span > 0 {
			norm[r.Document.ID] = (r.Score - lo) / span
		} else {
			norm[r.Document.ID] = 0
		}
	}
	return norm
}
