// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// stopwords are excluded from overlap measurement; they carry no evidence
// about whether mechanism text was drawn from the source.
var stopwords = map[string]bool{
	"the": true, "and": true, "via": true, "through": true, "with": true,
	"that": true, "this": true, "from": true, "into": true, "for": true,
	"effect": true, "effects": true, "activity": true, "pathway": true,
}

// CheckHallucination flags an extraction whose referenced document ID does
// not match the document actually sent, or whose mechanism text has
// negligible lexical overlap with the source title and abstract. The overlap
// measure is a coarse keyword-presence heuristic, a best-effort signal for
// auditing backend reliability rather than a semantic verifier. It returns
// an empty string when the extraction passes.
func CheckHallucination(ext types.EvidenceExtraction, doc types.Document, minOverlap float64) string {
	if ext.SourceDocumentID != doc.ID {
		return fmt.Sprintf("references document %s but %s was sent", ext.SourceDocumentID, doc.ID)
	}

	terms := contentTerms(ext.Mechanism)
	if len(terms) == 0 {
		return ""
	}

	source := map[string]bool{}
	for _, t := range contentTerms(doc.Title + " " + doc.Abstract) {
		source[t] = true
	}

	matched := 0
	for _, t := range terms {
		if source[t] {
			matched++
		}
	}

	overlap := float64(matched) / float64(len(terms))
	if overlap < minOverlap {
		return fmt.Sprintf("mechanism overlap %.2f below threshold %.2f", overlap, minOverlap)
	}
	return ""
}

// contentTerms tokenizes text and keeps content-bearing terms: longer than
// three characters and not a stopword.
func contentTerms(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, t := range tokens {
		if len(t) > 3 && !stopwords[t] {
			terms = append(terms, t)
		}
	}
	return terms
}
