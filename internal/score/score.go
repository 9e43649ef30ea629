// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score maps an aggregated drug dossier to five bounded sub-scores
// and their total. Scoring is a pure function: no randomness, no I/O, and
// missing or invalid dossier fields contribute zero rather than failing.
package score

import (
	"sort"
	"strings"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// Component bounds. The total is always within [0, 100].
const (
	MaxEvidenceStrength      = 30.0
	MaxMechanismPlausibility = 20.0
	MaxTranslatability       = 20.0
	MaxSafetyFit             = 20.0
	MaxPracticality          = 10.0
)

// generalKeywords is the recognized general mechanism vocabulary.
var generalKeywords = map[string]bool{
	"antioxidant":           true,
	"anti-inflammatory":     true,
	"neuroprotective":       true,
	"anti-apoptotic":        true,
	"immunomodulatory":      true,
	"vasodilatory":          true,
	"anti-fibrotic":         true,
	"insulin-sensitizing":   true,
	"autophagy induction":   true,
	"mitochondrial support": true,
}

// specificKeywords name a concrete target or pathway and earn extra credit.
var specificKeywords = map[string]bool{
	"ampk activation":    true,
	"mtor inhibition":    true,
	"nmda antagonism":    true,
	"cox-2 inhibition":   true,
	"gsk-3b inhibition":  true,
	"nrf2 activation":    true,
	"tnf-alpha blockade": true,
	"ace inhibition":     true,
}

// Recognized reports whether a mechanism keyword belongs to the known
// vocabulary, and whether it is target-specific.
func Recognized(keyword string) (known, specific bool) {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if specificKeywords[k] {
		return true, true
	}
	return generalKeywords[k], false
}

// MatchKeywords scans free text for known mechanism vocabulary and returns
// the matched keywords in vocabulary-independent first-match order. Used by
// the dossier aggregator to turn mechanism prose into keywords.
func MatchKeywords(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, k := range orderedVocabulary() {
		if strings.Contains(lower, k) {
			matched = append(matched, k)
		}
	}
	return matched
}

// orderedVocabulary returns the full vocabulary in a fixed order so matching
// is deterministic.
func orderedVocabulary() []string {
	keys := make([]string, 0, len(generalKeywords)+len(specificKeywords))
	for _, set := range []map[string]bool{specificKeywords, generalKeywords} {
		var batch []string
		for k := range set {
			batch = append(batch, k)
		}
		sort.Strings(batch)
		keys = append(keys, batch...)
	}
	return keys
}

// Score computes the full breakdown for a dossier. Total is the exact sum of
// the five components.
func Score(d types.Dossier, cfg types.ScoreConfig) types.ScoreBreakdown {
	s := types.ScoreBreakdown{
		EvidenceStrength:      evidenceStrength(d, cfg),
		MechanismPlausibility: mechanismPlausibility(d, cfg),
		Translatability:       translatability(d, cfg),
		SafetyFit:             safetyFit(d, cfg),
		Practicality:          practicality(d, cfg),
	}
	s.Total = s.EvidenceStrength + s.MechanismPlausibility + s.Translatability + s.SafetyFit + s.Practicality
	return s
}

// evidenceStrength rewards benefit evidence with diminishing returns, adds
// coverage credit for the breadth of retrieved literature, and penalizes the
// harm share of directional evidence.
func evidenceStrength(d types.Dossier, cfg types.ScoreConfig) float64 {
	benefit := float64(d.EvidenceCount.Benefit)

	var benefitPart float64
	if benefit > 0 && cfg.BenefitSaturation >= 0 {
		benefitPart = cfg.BenefitWeight * benefit / (benefit + cfg.BenefitSaturation)
	}

	var coveragePart float64
	if d.TotalPMIDs > 0 && cfg.CoverageSaturation > 0 {
		share := float64(d.TotalPMIDs) / cfg.CoverageSaturation
		if share > 1 {
			share = 1
		}
		coveragePart = cfg.CoverageWeight * share
	}

	penalty := cfg.HarmPenaltyWeight * d.HarmRatio()

	return clamp(benefitPart+coveragePart-penalty, 0, MaxEvidenceStrength)
}

// mechanismPlausibility credits recognized mechanism keywords by specificity.
func mechanismPlausibility(d types.Dossier, cfg types.ScoreConfig) float64 {
	var total float64
	for _, kw := range d.MechanismKeywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		known, specific := Recognized(kw)
		switch {
		case specific:
			total += cfg.SpecificKeywordWeight
		case known:
			total += cfg.RecognizedKeywordWeight
		default:
			total += cfg.UnrecognizedKeywordWeight
		}
	}
	return clamp(total, 0, MaxMechanismPlausibility)
}

// translatability credits the diversity of experimental models, weighting
// human over animal over cell evidence. A dossier without model counts
// contributes nothing.
func translatability(d types.Dossier, cfg types.ScoreConfig) float64 {
	var total float64
	if d.ModelCounts.Human > 0 {
		total += cfg.HumanPresence
	}
	if d.ModelCounts.Animal > 0 {
		total += cfg.AnimalPresence
	}
	if d.ModelCounts.Cell > 0 {
		total += cfg.CellPresence
	}
	return clamp(total, 0, MaxTranslatability)
}

// safetyFit shrinks with every recorded safety concern and with the harm
// share of directional evidence.
func safetyFit(d types.Dossier, cfg types.ScoreConfig) float64 {
	concernFactor := 1 - cfg.SafetyConcernPenalty*float64(len(d.SafetyConcerns))
	if concernFactor < 0 {
		concernFactor = 0
	}
	return clamp(MaxSafetyFit*concernFactor*(1-d.HarmRatio()), 0, MaxSafetyFit)
}

// practicality credits explicit repurposing signals plus a small bonus for a
// characterized literature base.
func practicality(d types.Dossier, cfg types.ScoreConfig) float64 {
	total := cfg.SignalWeight * float64(len(d.RepurposingSignals))
	if cfg.LiteratureBaseMin > 0 && d.TotalPMIDs >= cfg.LiteratureBaseMin {
		total += cfg.LiteratureBaseBonus
	}
	return clamp(total, 0, MaxPracticality)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
