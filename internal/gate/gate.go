// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate applies the multi-reason decision policy: every gate predicate
// is evaluated against (dossier, scores, config) without short-circuiting, so
// the decision always carries the complete list of violated gates. The only
// hard error is a structurally invalid configuration; a well-formed dossier
// and score pair always yields a decision.
package gate

import (
	"fmt"
	"strings"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// Evaluate runs all gates and derives the terminal decision. NO-GO when any
// hard gate fails; otherwise GO or MAYBE by score band. Reasons is non-empty
// exactly when the decision is not GO.
func Evaluate(d types.Dossier, s types.ScoreBreakdown, cfg types.GateConfig) (types.GateDecision, error) {
	if err := validateConfig(cfg); err != nil {
		return types.GateDecision{}, err
	}

	decision := types.GateDecision{
		DrugID:        d.DrugID,
		CanonicalName: d.CanonicalName,
		Metrics: types.GateMetrics{
			TotalScore:     s.Total,
			BenefitPapers:  d.EvidenceCount.Benefit,
			TotalPMIDs:     d.TotalPMIDs,
			HarmRatio:      d.HarmRatio(),
			SafetyConcerns: len(d.SafetyConcerns),
		},
	}

	// Evaluate every hard gate; never stop at the first failure.
	var reasons []string
	for _, g := range hardGates {
		if msg := g(d, s, cfg); msg != "" {
			reasons = append(reasons, msg)
		}
	}

	switch {
	case len(reasons) > 0:
		decision.Decision = types.DecisionNoGo
		decision.Reasons = reasons
	case s.Total >= cfg.GoThreshold:
		decision.Decision = types.DecisionGo
	default:
		decision.Decision = types.DecisionMaybe
		decision.Reasons = []string{fmt.Sprintf(
			"total score %.1f below go threshold %.1f", s.Total, cfg.GoThreshold)}
	}

	// Secondary channel: a MAYBE with a promising mechanism profile despite
	// thin benefit evidence is routed to exploratory review. The primary
	// label is never altered.
	if decision.Decision == types.DecisionMaybe &&
		len(d.MechanismKeywords) >= cfg.ExploreMinMechanisms &&
		d.EvidenceCount.Benefit < cfg.ExploreMaxBenefit {
		decision.Channel = types.ChannelExplore
	}

	return decision, nil
}

// gateFunc returns a failure message, or "" when the gate passes.
type gateFunc func(d types.Dossier, s types.ScoreBreakdown, cfg types.GateConfig) string

// hardGates are evaluated in order; any failure forces NO-GO.
var hardGates = []gateFunc{
	minBenefitPapers,
	minTotalPMIDs,
	maxHarmRatio,
	safetyBlacklist,
	minTotalScore,
}

func minBenefitPapers(d types.Dossier, _ types.ScoreBreakdown, cfg types.GateConfig) string {
	if d.EvidenceCount.Benefit < cfg.MinBenefitPapers {
		return fmt.Sprintf("insufficient benefit evidence: %d paper(s), need %d",
			d.EvidenceCount.Benefit, cfg.MinBenefitPapers)
	}
	return ""
}

func minTotalPMIDs(d types.Dossier, _ types.ScoreBreakdown, cfg types.GateConfig) string {
	if d.TotalPMIDs < cfg.MinTotalPMIDs {
		return fmt.Sprintf("insufficient literature coverage: %d PMID(s), need %d",
			d.TotalPMIDs, cfg.MinTotalPMIDs)
	}
	return ""
}

func maxHarmRatio(d types.Dossier, _ types.ScoreBreakdown, cfg types.GateConfig) string {
	if ratio := d.HarmRatio(); ratio > cfg.MaxHarmRatio {
		return fmt.Sprintf("harm ratio %.2f exceeds maximum %.2f", ratio, cfg.MaxHarmRatio)
	}
	return ""
}

func safetyBlacklist(d types.Dossier, _ types.ScoreBreakdown, cfg types.GateConfig) string {
	var hits []string
	for _, concern := range d.SafetyConcerns {
		lower := strings.ToLower(concern)
		for _, blocked := range cfg.SafetyBlacklist {
			if strings.Contains(lower, strings.ToLower(blocked)) {
				hits = append(hits, concern)
				break
			}
		}
	}
	if len(hits) > 0 {
		return fmt.Sprintf("safety blacklist hit: %s", strings.Join(hits, ", "))
	}
	return ""
}

func minTotalScore(_ types.Dossier, s types.ScoreBreakdown, cfg types.GateConfig) string {
	if s.Total < cfg.MaybeThreshold {
		return fmt.Sprintf("total score %.1f below minimum %.1f", s.Total, cfg.MaybeThreshold)
	}
	return ""
}

// validateConfig rejects structurally invalid configurations up front.
func validateConfig(cfg types.GateConfig) error {
	switch {
	case cfg.GoThreshold < 0 || cfg.MaybeThreshold < 0:
		return fmt.Errorf("invalid gate config: negative score threshold")
	case cfg.MaybeThreshold > cfg.GoThreshold:
		return fmt.Errorf("invalid gate config: maybe threshold %.1f exceeds go threshold %.1f",
			cfg.MaybeThreshold, cfg.GoThreshold)
	case cfg.MinBenefitPapers < 0 || cfg.MinTotalPMIDs < 0:
		return fmt.Errorf("invalid gate config: negative evidence minimum")
	case cfg.MaxHarmRatio < 0 || cfg.MaxHarmRatio > 1:
		return fmt.Errorf("invalid gate config: harm ratio %.2f outside [0,1]", cfg.MaxHarmRatio)
	}
	return nil
}
