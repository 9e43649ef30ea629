// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoreBreakdown holds the five bounded sub-scores for a drug candidate plus
// their exact sum. Each component lies within its declared bound:
// EvidenceStrength [0,30], MechanismPlausibility [0,20], Translatability
// [0,20], SafetyFit [0,20], Practicality [0,10]; Total is always in [0,100].
type ScoreBreakdown struct {
	EvidenceStrength      float64 `json:"evidence_strength" yaml:"evidence_strength"`
	MechanismPlausibility float64 `json:"mechanism_plausibility" yaml:"mechanism_plausibility"`
	Translatability       float64 `json:"translatability" yaml:"translatability"`
	SafetyFit             float64 `json:"safety_fit" yaml:"safety_fit"`
	Practicality          float64 `json:"practicality" yaml:"practicality"`

	// Total is the sum of the five components.
	Total float64 `json:"total" yaml:"total"`
}

// Components returns the five sub-scores in their canonical order.
func (s ScoreBreakdown) Components() []float64 {
	return []float64{
		s.EvidenceStrength,
		s.MechanismPlausibility,
		s.Translatability,
		s.SafetyFit,
		s.Practicality,
	}
}

// Decision is the terminal label for a drug candidate.
type Decision string

const (
	DecisionGo    Decision = "GO"
	DecisionMaybe Decision = "MAYBE"
	DecisionNoGo  Decision = "NO-GO"
)

// ChannelExplore tags a MAYBE whose mechanism profile looks promising despite
// thin evidence, routing it to exploratory review.
const ChannelExplore = "explore"

// GateMetrics snapshots the inputs the gating engine consulted, so the
// decision is auditable without re-deriving them from the dossier.
type GateMetrics struct {
	TotalScore     float64 `json:"total_score" yaml:"total_score"`
	BenefitPapers  int     `json:"benefit_papers" yaml:"benefit_papers"`
	TotalPMIDs     int     `json:"total_pmids" yaml:"total_pmids"`
	HarmRatio      float64 `json:"harm_ratio" yaml:"harm_ratio"`
	SafetyConcerns int     `json:"safety_concerns" yaml:"safety_concerns"`
}

// GateDecision is the gating engine's output for one candidate. Reasons is
// non-empty exactly when Decision != GO and lists every violated gate, not
// just the first.
type GateDecision struct {
	DrugID        string `json:"drug_id" yaml:"drug_id"`
	CanonicalName string `json:"canonical_name" yaml:"canonical_name"`

	Decision Decision `json:"decision" yaml:"decision"`

	// Reasons lists every failed gate, in gate-definition order.
	Reasons []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`

	Metrics GateMetrics `json:"metrics" yaml:"metrics"`

	// Channel is an optional secondary routing tag (e.g. "explore") layered
	// on top of the primary decision.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
}
