// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// docIDPattern is the accepted shape for source document identifiers: a
// PMID-style token of letters, digits, dots, dashes, or underscores.
var docIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate runs the strict structural check on a recovered object and
// returns every violated constraint (empty means valid). It performs no
// normalization; callers apply Coerce and re-validate to reduce false
// failures.
func Validate(raw rawExtraction) []string {
	var violations []string

	if raw.SourceDocumentID == "" || !docIDPattern.MatchString(raw.SourceDocumentID) {
		violations = append(violations, fmt.Sprintf("source_document_id: %q is not a valid identifier", raw.SourceDocumentID))
	}
	if !types.Direction(raw.Direction).Valid() {
		violations = append(violations, fmt.Sprintf("direction: %q not in {benefit, harm, neutral, unclear}", raw.Direction))
	}
	if !types.EvidenceModel(raw.Model).Valid() {
		violations = append(violations, fmt.Sprintf("model: %q not in {human, animal, cell, unclear}", raw.Model))
	}
	if !types.Endpoint(raw.Endpoint).Valid() {
		violations = append(violations, fmt.Sprintf("endpoint: %q is not a recognized endpoint code", raw.Endpoint))
	}
	if !types.Confidence(raw.Confidence).Valid() {
		violations = append(violations, fmt.Sprintf("confidence: %q not in {HIGH, MEDIUM, LOW}", raw.Confidence))
	}
	if raw.DrugName == "" {
		violations = append(violations, "drug_name: empty")
	}

	return violations
}

// directionSynonyms maps observed backend vocabulary onto the closed
// direction set. Only mappings directly implied by the word itself belong
// here; Coerce never invents a value.
var directionSynonyms = map[string]string{
	"beneficial":  string(types.DirectionBenefit),
	"protective":  string(types.DirectionBenefit),
	"improvement": string(types.DirectionBenefit),
	"harmful":     string(types.DirectionHarm),
	"adverse":     string(types.DirectionHarm),
	"deleterious": string(types.DirectionHarm),
	"worsening":   string(types.DirectionHarm),
	"no effect":   string(types.DirectionNeutral),
	"none":        string(types.DirectionNeutral),
	"null":        string(types.DirectionNeutral),
	"unknown":     string(types.DirectionUnclear),
	"uncertain":   string(types.DirectionUnclear),
	"mixed":       string(types.DirectionUnclear),
}

var modelSynonyms = map[string]string{
	"patient":   string(types.ModelHuman),
	"patients":  string(types.ModelHuman),
	"clinical":  string(types.ModelHuman),
	"rodent":    string(types.ModelAnimal),
	"mouse":     string(types.ModelAnimal),
	"mice":      string(types.ModelAnimal),
	"rat":       string(types.ModelAnimal),
	"murine":    string(types.ModelAnimal),
	"in vitro":  string(types.ModelCell),
	"cellular":  string(types.ModelCell),
	"cell line": string(types.ModelCell),
	"unknown":   string(types.ModelUnclear),
}

var endpointSynonyms = map[string]string{
	"survival":            string(types.EndpointMortality),
	"death":               string(types.EndpointMortality),
	"disease progression": string(types.EndpointProgression),
	"biomarkers":          string(types.EndpointBiomarker),
	"marker":              string(types.EndpointBiomarker),
	"symptom":             string(types.EndpointSymptomatic),
	"symptoms":            string(types.EndpointSymptomatic),
	"adverse events":      string(types.EndpointSafety),
	"tolerability":        string(types.EndpointSafety),
	"unknown":             string(types.EndpointUnclear),
	"other":               string(types.EndpointUnclear),
}

var confidenceSynonyms = map[string]string{
	"MODERATE": string(types.ConfidenceMedium),
	"MED":      string(types.ConfidenceMedium),
}

// Coerce applies only derivable normalizations to a recovered object: case
// folding, whitespace trimming, and known synonym mappings such as
// "rodent" -> "animal". A value with no mapping passes through unchanged so
// re-validation rejects it; Coerce never fills an empty field.
func Coerce(raw rawExtraction) rawExtraction {
	out := raw
	out.SourceDocumentID = strings.TrimSpace(raw.SourceDocumentID)
	out.DrugName = strings.TrimSpace(raw.DrugName)
	out.Mechanism = strings.TrimSpace(raw.Mechanism)
	out.Direction = coerceEnum(raw.Direction, directionSynonyms, false)
	out.Model = coerceEnum(raw.Model, modelSynonyms, false)
	out.Endpoint = coerceEnum(raw.Endpoint, endpointSynonyms, false)
	out.Confidence = coerceEnum(raw.Confidence, confidenceSynonyms, true)
	return out
}

// coerceEnum folds case, trims, and applies the synonym map. Confidence
// values are upper-cased; everything else is lower-cased.
func coerceEnum(value string, synonyms map[string]string, upper bool) string {
	if value == "" {
		return ""
	}
	folded := strings.TrimSpace(value)
	if upper {
		folded = strings.ToUpper(folded)
	} else {
		folded = strings.ToLower(folded)
	}
	if mapped, ok := synonyms[folded]; ok {
		return mapped
	}
	return folded
}
