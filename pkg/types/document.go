// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the dossier-engine pipeline:
// retrieved documents, ranked results, evidence extractions, aggregated drug
// dossiers, score breakdowns, and gate decisions.
package types

// Document is a retrieved literature record: one PubMed abstract (or
// equivalent) supplied by the retrieval collaborator. Documents are immutable
// once handed to the pipeline.
type Document struct {
	// ID is the source identifier, normally a PMID (e.g. "31906867").
	ID string `json:"id" yaml:"id"`

	// Title is the article title. May be empty.
	Title string `json:"title" yaml:"title"`

	// Abstract is the article abstract. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`
}

// RankedResult pairs a document with its relevance score for one query.
// Sequences of RankedResult are always ordered descending by Score, ties
// broken by original input order.
type RankedResult struct {
	// Score is the relevance score. Scale depends on the stage that
	// produced it (BM25, fused, or cross-encoder).
	Score float64 `json:"score" yaml:"score"`

	Document Document `json:"document" yaml:"document"`
}
