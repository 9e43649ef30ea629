// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns generative-backend responses about documents into
// strictly-typed evidence records. Each document goes through repair
// (recover a structured object from free text), validate (closed-set and
// identifier-shape checks), coerce (derivable normalizations only), and a
// hallucination check against the source abstract. Any step failing removes
// that document as a recorded failure; it never aborts the batch.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// GenerateOptions carries per-call hints for the generative backend.
type GenerateOptions struct {
	// ResponseFormat hints the expected output shape (e.g. "json").
	ResponseFormat string

	// Stream requests an incrementally aggregated response.
	Stream bool
}

// Generator abstracts the generative backend behind a single operation so the
// validator is backend-agnostic and testable against a scripted fake.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// errBatchCanceled marks a document interrupted by batch-level cancellation
// rather than its own deadline. The document is left unprocessed.
var errBatchCanceled = errors.New("batch canceled")

// ExtractBatch extracts evidence for drugName from up to cfg.MaxDocuments
// documents. Per-document failures are recorded with a reason code and never
// abort the batch; batch-level cancellation returns the results completed so
// far. SuccessCount + FailureCount always equals the number of documents
// processed.
func ExtractBatch(ctx context.Context, gen Generator, docs []types.Document, drugName string, cfg types.ExtractionConfig, w io.Writer) (types.BatchResult, error) {
	if gen == nil {
		return types.BatchResult{}, fmt.Errorf("no generative backend configured")
	}
	if drugName == "" {
		return types.BatchResult{}, fmt.Errorf("drug name is empty")
	}

	result := types.BatchResult{
		BatchID:  uuid.NewString(),
		DrugName: drugName,
		Failures: make(map[string]types.Failure),
	}

	max := cfg.MaxDocuments
	if max <= 0 || max > len(docs) {
		max = len(docs)
	}

	for _, doc := range docs[:max] {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "warning: batch canceled after %d document(s)\n",
				result.SuccessCount+result.FailureCount)
			break
		}

		ext, fail, err := extractOne(ctx, gen, doc, drugName, cfg)
		if err != nil {
			// Cancellation mid-document: the document stays unprocessed.
			fmt.Fprintf(w, "warning: batch canceled after %d document(s)\n",
				result.SuccessCount+result.FailureCount)
			break
		}
		if fail != nil {
			result.Failures[doc.ID] = *fail
			result.FailureCount++
			fmt.Fprintf(w, "failed  %s: %s\n", doc.ID, fail.Code)
			continue
		}

		result.Extractions = append(result.Extractions, *ext)
		result.SuccessCount++
		fmt.Fprintf(w, "extracted %s (%s, %s)\n", doc.ID, ext.Direction, ext.Confidence)
	}

	return result, nil
}

// extractOne runs the full repair/validate/coerce/hallucination pipeline for
// a single document. A non-nil error means batch cancellation; every other
// outcome is either an extraction or a typed failure.
func extractOne(ctx context.Context, gen Generator, doc types.Document, drugName string, cfg types.ExtractionConfig) (*types.EvidenceExtraction, *types.Failure, error) {
	dctx := ctx
	if cfg.PerDocumentTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, cfg.PerDocumentTimeout)
		defer cancel()
	}

	raw, err := gen.Generate(dctx, renderPrompt(doc, drugName), GenerateOptions{
		ResponseFormat: "json",
		Stream:         cfg.Stream,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, errBatchCanceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &types.Failure{Code: types.ReasonTimeout, Detail: err.Error()}, nil
		}
		return nil, &types.Failure{Code: types.ReasonBackendError, Detail: err.Error()}, nil
	}

	obj, err := Repair(raw)
	if err != nil {
		return nil, &types.Failure{Code: types.ReasonUnparseable, Detail: err.Error()}, nil
	}

	violations := Validate(obj)
	if len(violations) > 0 {
		obj = Coerce(obj)
		violations = Validate(obj)
	}
	if len(violations) > 0 {
		return nil, &types.Failure{
			Code:   types.ReasonSchemaInvalid,
			Detail: strings.Join(violations, "; "),
		}, nil
	}

	ext := obj.typed()

	if reason := CheckHallucination(ext, doc, cfg.MinMechanismOverlap); reason != "" {
		return nil, &types.Failure{Code: types.ReasonHallucination, Detail: reason}, nil
	}

	return &ext, nil, nil
}
