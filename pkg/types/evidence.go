// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Direction classifies what an abstract says the drug did to the disease
// process. Closed set: post-validation, an EvidenceExtraction never carries a
// direction outside these four values.
type Direction string

const (
	DirectionBenefit Direction = "benefit"
	DirectionHarm    Direction = "harm"
	DirectionNeutral Direction = "neutral"
	DirectionUnclear Direction = "unclear"
)

// Valid reports whether d is a member of the closed direction set.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBenefit, DirectionHarm, DirectionNeutral, DirectionUnclear:
		return true
	}
	return false
}

// EvidenceModel classifies the experimental system the evidence comes from.
type EvidenceModel string

const (
	ModelHuman   EvidenceModel = "human"
	ModelAnimal  EvidenceModel = "animal"
	ModelCell    EvidenceModel = "cell"
	ModelUnclear EvidenceModel = "unclear"
)

// Valid reports whether m is a member of the closed model set.
func (m EvidenceModel) Valid() bool {
	switch m {
	case ModelHuman, ModelAnimal, ModelCell, ModelUnclear:
		return true
	}
	return false
}

// Endpoint is the outcome category the study measured.
type Endpoint string

const (
	EndpointMortality   Endpoint = "mortality"
	EndpointProgression Endpoint = "progression"
	EndpointBiomarker   Endpoint = "biomarker"
	EndpointSymptomatic Endpoint = "symptomatic"
	EndpointSafety      Endpoint = "safety"
	EndpointUnclear     Endpoint = "unclear"
)

// Valid reports whether e is a member of the closed endpoint set.
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointMortality, EndpointProgression, EndpointBiomarker,
		EndpointSymptomatic, EndpointSafety, EndpointUnclear:
		return true
	}
	return false
}

// Confidence is the backend's self-reported certainty about an extraction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Valid reports whether c is a member of the closed confidence set.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// EvidenceExtraction is one validated evidence record extracted from a single
// document for a single drug. Created once by the extraction stage and never
// mutated; every enum field has passed its closed-set check.
type EvidenceExtraction struct {
	// SourceDocumentID is the ID of the document the evidence was extracted
	// from. Matches the document actually sent to the backend.
	SourceDocumentID string `json:"source_document_id" yaml:"source_document_id"`

	// Direction is the reported effect of the drug on the disease process.
	Direction Direction `json:"direction" yaml:"direction"`

	// Model is the experimental system the study used.
	Model EvidenceModel `json:"model" yaml:"model"`

	// Endpoint is the outcome category the study measured.
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint"`

	// Mechanism is free text describing the proposed mechanism of action,
	// drawn from the abstract.
	Mechanism string `json:"mechanism" yaml:"mechanism"`

	// Confidence is the backend's certainty about this extraction.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// DrugName is the drug the extraction concerns.
	DrugName string `json:"drug_name" yaml:"drug_name"`
}

// FailureReason codes per-document extraction failures so operators can audit
// backend unreliability separately from genuine absence of evidence.
type FailureReason string

const (
	// ReasonUnparseable: no structured object could be recovered from the
	// backend's response.
	ReasonUnparseable FailureReason = "unparseable"

	// ReasonSchemaInvalid: a recovered object violated the closed-set or
	// identifier-shape constraints even after coercion.
	ReasonSchemaInvalid FailureReason = "schema_invalid"

	// ReasonHallucination: the extraction references a document other than
	// the one sent, or asserts mechanism text with negligible overlap with
	// the source abstract.
	ReasonHallucination FailureReason = "hallucination_suspected"

	// ReasonBackendError: the backend call failed after transport retries.
	ReasonBackendError FailureReason = "backend_error"

	// ReasonTimeout: the per-document deadline elapsed.
	ReasonTimeout FailureReason = "timeout"
)

// Failure records why one document produced no extraction.
type Failure struct {
	Code FailureReason `json:"code" yaml:"code"`

	// Detail carries the violated fields or the underlying error message.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// BatchResult is the outcome of extracting evidence from a batch of documents
// for one drug. SuccessCount + FailureCount always equals the number of
// documents processed, and len(Extractions) == SuccessCount.
type BatchResult struct {
	// BatchID identifies this extraction run for audit purposes.
	BatchID string `json:"batch_id" yaml:"batch_id"`

	// DrugName is the drug the batch was extracted for.
	DrugName string `json:"drug_name" yaml:"drug_name"`

	// Extractions holds the validated records, in document order.
	Extractions []EvidenceExtraction `json:"extractions" yaml:"extractions"`

	SuccessCount int `json:"success_count" yaml:"success_count"`
	FailureCount int `json:"failure_count" yaml:"failure_count"`

	// Failures maps document ID to the reason it produced no extraction.
	Failures map[string]Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}
