// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dossier aggregates validated evidence extractions into per-drug
// dossiers and persists extractions, dossiers, and gate decisions in SQLite.
package dossier

import (
	"sort"
	"strings"

	"github.com/meshbio/dossier-engine/internal/score"
	"github.com/meshbio/dossier-engine/pkg/types"
)

// Build aggregates extractions for one drug into a dossier. Direction and
// model tallies count every extraction; mechanism keywords are the recognized
// vocabulary terms found across all mechanism texts; safety concerns come from
// harm-direction and safety-endpoint extractions. Repurposing signals are
// drug properties, not literature evidence, so callers set them separately.
func Build(drugID, canonicalName string, extractions []types.EvidenceExtraction, totalPMIDs int) types.Dossier {
	d := types.Dossier{
		DrugID:        drugID,
		CanonicalName: canonicalName,
		TotalPMIDs:    totalPMIDs,
	}

	var mechanisms []string
	for _, ext := range extractions {
		switch ext.Direction {
		case types.DirectionBenefit:
			d.EvidenceCount.Benefit++
		case types.DirectionHarm:
			d.EvidenceCount.Harm++
		case types.DirectionNeutral:
			d.EvidenceCount.Neutral++
		default:
			d.EvidenceCount.Unknown++
		}

		switch ext.Model {
		case types.ModelHuman:
			d.ModelCounts.Human++
		case types.ModelAnimal:
			d.ModelCounts.Animal++
		case types.ModelCell:
			d.ModelCounts.Cell++
		default:
			d.ModelCounts.Unclear++
		}

		if ext.Mechanism != "" {
			mechanisms = append(mechanisms, ext.Mechanism)
		}

		if concern := safetyConcern(ext); concern != "" {
			d.SafetyConcerns = appendUnique(d.SafetyConcerns, concern)
		}
	}

	d.MechanismKeywords = score.MatchKeywords(strings.Join(mechanisms, "\n"))
	sort.Strings(d.SafetyConcerns)
	return d
}

// safetyConcern extracts a concern string from extractions that report harm
// or measured a safety endpoint. The mechanism text is the concern; a harm
// record with no mechanism still registers a generic concern so it is never
// silently dropped.
func safetyConcern(ext types.EvidenceExtraction) string {
	harmful := ext.Direction == types.DirectionHarm
	safetyEndpoint := ext.Endpoint == types.EndpointSafety
	if !harmful && !safetyEndpoint {
		return ""
	}
	if mech := strings.TrimSpace(ext.Mechanism); mech != "" {
		return strings.ToLower(mech)
	}
	if harmful {
		return "unspecified harm signal"
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
