// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HybridStrategy selects how the lexical and secondary relevance signals are
// combined in the ranking pipeline. The combination is an explicit
// configuration choice; there is no hidden default inside the pipeline.
type HybridStrategy string

const (
	// HybridRRF fuses the two rankings with reciprocal rank fusion.
	HybridRRF HybridStrategy = "rrf"

	// HybridWeighted combines min-max normalized scores as a weighted sum.
	HybridWeighted HybridStrategy = "weighted"
)

// RankConfig holds settings for the ranking pipeline.
type RankConfig struct {
	// BM25K1 is the BM25 term-frequency saturation parameter (default 1.2).
	BM25K1 float64 `json:"bm25_k1" yaml:"bm25_k1"`

	// BM25B is the BM25 length-normalization parameter (default 0.75).
	BM25B float64 `json:"bm25_b" yaml:"bm25_b"`

	// EnableFieldBoost turns on the title-match bonus stage.
	EnableFieldBoost bool `json:"enable_field_boost" yaml:"enable_field_boost"`

	// TitleBoost is the additive bonus per query term found verbatim in the
	// title (default 0.5).
	TitleBoost float64 `json:"title_boost" yaml:"title_boost"`

	// EnableHybrid turns on the secondary relevance signal.
	EnableHybrid bool `json:"enable_hybrid" yaml:"enable_hybrid"`

	// Strategy selects rrf or weighted hybrid combination.
	Strategy HybridStrategy `json:"hybrid_strategy" yaml:"hybrid_strategy"`

	// HybridWeight is the lexical share for the weighted strategy, in [0,1]
	// (default 0.7). The secondary signal gets 1 - HybridWeight.
	HybridWeight float64 `json:"hybrid_weight" yaml:"hybrid_weight"`

	// RRFK is the rank-fusion smoothing constant (default 60).
	RRFK float64 `json:"rrf_k" yaml:"rrf_k"`

	// EnableCrossEncoder turns on shortlist reordering by the external
	// cross-encoder collaborator. The stage fails open when the collaborator
	// is unavailable.
	EnableCrossEncoder bool `json:"enable_cross_encoder" yaml:"enable_cross_encoder"`

	// CrossEncoderTopN is the shortlist size passed to the cross-encoder
	// (default 10).
	CrossEncoderTopN int `json:"cross_encoder_top_n" yaml:"cross_encoder_top_n"`
}

// DefaultRankConfig returns the standard ranking configuration.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		BM25K1:           1.2,
		BM25B:            0.75,
		EnableFieldBoost: true,
		TitleBoost:       0.5,
		EnableHybrid:     true,
		Strategy:         HybridRRF,
		HybridWeight:     0.7,
		RRFK:             60,
		CrossEncoderTopN: 10,
	}
}

// AIConfig holds shared settings for the generative backend.
type AIConfig struct {
	// Model is the backend model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the backend API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of transport-level retry attempts (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Stream requests a streamed response; the client aggregates the chunks
	// into a single text before handing it to the validator.
	Stream bool `json:"stream" yaml:"stream"`
}

// ExtractionConfig holds settings for the evidence-extraction stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`

	// MaxDocuments caps the number of documents processed per batch
	// (default 25).
	MaxDocuments int `json:"max_documents" yaml:"max_documents"`

	// PerDocumentTimeout bounds each backend call; an elapsed deadline is
	// that document's failure, not a batch abort (default 60s).
	PerDocumentTimeout time.Duration `json:"per_document_timeout" yaml:"per_document_timeout"`

	// MinMechanismOverlap is the minimum fraction of mechanism terms that
	// must appear in the source title+abstract before the extraction is
	// flagged as a suspected hallucination (default 0.2).
	MinMechanismOverlap float64 `json:"min_mechanism_overlap" yaml:"min_mechanism_overlap"`

	// OutputDir is where batch results are written as YAML.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// DefaultExtractionConfig returns the standard extraction configuration.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		AIConfig:            AIConfig{MaxRetries: 3},
		MaxDocuments:        25,
		PerDocumentTimeout:  60 * time.Second,
		MinMechanismOverlap: 0.2,
		OutputDir:           "dossiers/extracted",
	}
}

// ScoreConfig holds the weights and saturation constants for the drug scorer.
// All knobs are named so score calibration never requires touching scoring
// logic.
type ScoreConfig struct {
	// BenefitWeight scales the diminishing-returns benefit term (default 24).
	BenefitWeight float64 `json:"benefit_weight" yaml:"benefit_weight"`

	// BenefitSaturation is the benefit-paper count at which the benefit term
	// reaches half its weight (default 4).
	BenefitSaturation float64 `json:"benefit_saturation" yaml:"benefit_saturation"`

	// CoverageWeight scales the PMID-coverage term (default 6).
	CoverageWeight float64 `json:"coverage_weight" yaml:"coverage_weight"`

	// CoverageSaturation is the PMID count for full coverage credit
	// (default 40).
	CoverageSaturation float64 `json:"coverage_saturation" yaml:"coverage_saturation"`

	// HarmPenaltyWeight scales the harm-ratio penalty on evidence strength
	// (default 12).
	HarmPenaltyWeight float64 `json:"harm_penalty_weight" yaml:"harm_penalty_weight"`

	// SpecificKeywordWeight is the credit for a recognized target-specific
	// mechanism keyword (default 12).
	SpecificKeywordWeight float64 `json:"specific_keyword_weight" yaml:"specific_keyword_weight"`

	// RecognizedKeywordWeight is the credit for a recognized general
	// mechanism keyword (default 8).
	RecognizedKeywordWeight float64 `json:"recognized_keyword_weight" yaml:"recognized_keyword_weight"`

	// UnrecognizedKeywordWeight is the credit for a mechanism keyword outside
	// the known vocabulary (default 2).
	UnrecognizedKeywordWeight float64 `json:"unrecognized_keyword_weight" yaml:"unrecognized_keyword_weight"`

	// HumanPresence, AnimalPresence, CellPresence are the translatability
	// credits for having any evidence in that model (defaults 10, 6, 4).
	HumanPresence  float64 `json:"human_presence" yaml:"human_presence"`
	AnimalPresence float64 `json:"animal_presence" yaml:"animal_presence"`
	CellPresence   float64 `json:"cell_presence" yaml:"cell_presence"`

	// SafetyConcernPenalty is the fractional safety-fit reduction per
	// recorded concern (default 0.5; two concerns zero the component).
	SafetyConcernPenalty float64 `json:"safety_concern_penalty" yaml:"safety_concern_penalty"`

	// SignalWeight is the practicality credit per repurposing signal
	// (default 3).
	SignalWeight float64 `json:"signal_weight" yaml:"signal_weight"`

	// LiteratureBaseBonus is the practicality credit for a characterized
	// literature base of at least LiteratureBaseMin papers (defaults 2, 10).
	LiteratureBaseBonus float64 `json:"literature_base_bonus" yaml:"literature_base_bonus"`
	LiteratureBaseMin   int     `json:"literature_base_min" yaml:"literature_base_min"`
}

// DefaultScoreConfig returns the calibrated scoring configuration.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		BenefitWeight:             24,
		BenefitSaturation:         4,
		CoverageWeight:            6,
		CoverageSaturation:        40,
		HarmPenaltyWeight:         12,
		SpecificKeywordWeight:     12,
		RecognizedKeywordWeight:   8,
		UnrecognizedKeywordWeight: 2,
		HumanPresence:             10,
		AnimalPresence:            6,
		CellPresence:              4,
		SafetyConcernPenalty:      0.5,
		SignalWeight:              3,
		LiteratureBaseBonus:       2,
		LiteratureBaseMin:         10,
	}
}

// GateConfig holds the thresholds for the gating engine. Evaluate validates
// the configuration up front; a structurally invalid GateConfig is the only
// hard error the decision core raises.
type GateConfig struct {
	// GoThreshold is the minimum total score for GO (default 60).
	GoThreshold float64 `json:"go_threshold" yaml:"go_threshold"`

	// MaybeThreshold is the minimum total score to avoid the low-score hard
	// gate (default 40).
	MaybeThreshold float64 `json:"maybe_threshold" yaml:"maybe_threshold"`

	// MinBenefitPapers is the minimum benefit-evidence paper count
	// (default 2).
	MinBenefitPapers int `json:"min_benefit_papers" yaml:"min_benefit_papers"`

	// MinTotalPMIDs is the minimum retrieved-paper coverage (default 10).
	MinTotalPMIDs int `json:"min_total_pmids" yaml:"min_total_pmids"`

	// MaxHarmRatio is the maximum tolerated harm share of directional
	// evidence (default 0.5).
	MaxHarmRatio float64 `json:"max_harm_ratio" yaml:"max_harm_ratio"`

	// SafetyBlacklist lists concern substrings that hard-fail the candidate.
	SafetyBlacklist []string `json:"safety_blacklist" yaml:"safety_blacklist"`

	// ExploreMinMechanisms and ExploreMaxBenefit define the secondary
	// "explore" channel: a MAYBE with at least ExploreMinMechanisms mechanism
	// keywords and fewer than ExploreMaxBenefit benefit papers is tagged for
	// exploratory review (defaults 2, 5).
	ExploreMinMechanisms int `json:"explore_min_mechanisms" yaml:"explore_min_mechanisms"`
	ExploreMaxBenefit    int `json:"explore_max_benefit" yaml:"explore_max_benefit"`
}

// DefaultGateConfig returns the standard gating thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		GoThreshold:      60,
		MaybeThreshold:   40,
		MinBenefitPapers: 2,
		MinTotalPMIDs:    10,
		MaxHarmRatio:     0.5,
		SafetyBlacklist: []string{
			"hepatotoxicity",
			"cardiotoxicity",
			"nephrotoxicity",
			"qt prolongation",
			"black box",
		},
		ExploreMinMechanisms: 2,
		ExploreMaxBenefit:    5,
	}
}

// StoreConfig holds settings for the dossier store.
type StoreConfig struct {
	// DataDir is the base directory for dossier data (contains index/,
	// extracted/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default listing limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Rank       RankConfig       `json:"rank" yaml:"rank"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Score      ScoreConfig      `json:"score" yaml:"score"`
	Gate       GateConfig       `json:"gate" yaml:"gate"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}
