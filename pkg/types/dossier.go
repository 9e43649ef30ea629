// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EvidenceCount tallies extractions by direction for one drug.
type EvidenceCount struct {
	Benefit int `json:"benefit" yaml:"benefit"`
	Harm    int `json:"harm" yaml:"harm"`
	Neutral int `json:"neutral" yaml:"neutral"`
	Unknown int `json:"unknown" yaml:"unknown"`
}

// Total returns the number of counted evidence records.
func (c EvidenceCount) Total() int {
	return c.Benefit + c.Harm + c.Neutral + c.Unknown
}

// ModelCount tallies extractions by experimental model for one drug.
type ModelCount struct {
	Human   int `json:"human" yaml:"human"`
	Animal  int `json:"animal" yaml:"animal"`
	Cell    int `json:"cell" yaml:"cell"`
	Unclear int `json:"unclear" yaml:"unclear"`
}

// Dossier is the aggregated evidence record for one drug candidate, built by
// the aggregation stage from many individual extractions. The scorer and the
// gating engine only read it; missing or zero fields are treated as
// zero-contribution, never as errors.
type Dossier struct {
	// DrugID is a stable identifier for the candidate (e.g. "CHEMBL112").
	DrugID string `json:"drug_id" yaml:"drug_id"`

	// CanonicalName is the preferred drug name (e.g. "metformin").
	CanonicalName string `json:"canonical_name" yaml:"canonical_name"`

	// TotalPMIDs is the number of distinct papers retrieved for the drug,
	// including papers that yielded no extraction.
	TotalPMIDs int `json:"total_pmids" yaml:"total_pmids"`

	// EvidenceCount tallies successful extractions by direction.
	EvidenceCount EvidenceCount `json:"evidence_count" yaml:"evidence_count"`

	// ModelCounts tallies successful extractions by experimental model.
	ModelCounts ModelCount `json:"model_counts" yaml:"model_counts"`

	// MechanismKeywords are recognized mechanism-of-action terms collected
	// across extractions (e.g. "antioxidant", "anti-inflammatory").
	MechanismKeywords []string `json:"mechanism_keywords" yaml:"mechanism_keywords"`

	// SafetyConcerns are safety signals collected from harm evidence
	// (e.g. "hepatotoxicity").
	SafetyConcerns []string `json:"safety_concerns" yaml:"safety_concerns"`

	// RepurposingSignals are practicality markers for the candidate
	// (e.g. "generic_available", "oral", "crosses_bbb").
	RepurposingSignals []string `json:"repurposing_signals,omitempty" yaml:"repurposing_signals,omitempty"`
}

// HarmRatio returns harm evidence as a fraction of directional evidence
// (benefit + harm). Zero when there is no directional evidence.
func (d Dossier) HarmRatio() float64 {
	directional := d.EvidenceCount.Benefit + d.EvidenceCount.Harm
	if directional == 0 {
		return 0
	}
	return float64(d.EvidenceCount.Harm) / float64(directional)
}
