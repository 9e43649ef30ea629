package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// --- mock backend ---

// scriptedGenerator returns a canned response per document ID found in the
// prompt.
type scriptedGenerator struct {
	responses map[string]string // document ID → raw response
	err       error
	calls     int
}

func (s *scriptedGenerator) Generate(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for id, resp := range s.responses {
		if strings.Contains(prompt, "Document ID: "+id+"\n") {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted response for prompt")
}

// blockingGenerator waits for the context to end, simulating a stuck backend.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string, _ GenerateOptions) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type generatorFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}

func goodResponse(docID string) string {
	return fmt.Sprintf(`{"source_document_id": %q, "direction": "benefit", "model": "human",
		"endpoint": "symptomatic", "mechanism": "amyloid clearance improved cognition",
		"confidence": "HIGH", "drug_name": "metformin"}`, docID)
}

func testDoc(id string) types.Document {
	return types.Document{
		ID:       id,
		Title:    "Metformin in Alzheimer disease",
		Abstract: "Metformin treatment improved cognition and amyloid clearance in patients with mild Alzheimer disease.",
	}
}

func batchCfg() types.ExtractionConfig {
	cfg := types.DefaultExtractionConfig()
	cfg.PerDocumentTimeout = 0
	return cfg
}

// --- ExtractBatch ---

func TestExtractBatchCountsAndClosedSets(t *testing.T) {
	docs := []types.Document{testDoc("11111"), testDoc("22222"), testDoc("33333"), testDoc("44444")}
	gen := &scriptedGenerator{responses: map[string]string{
		"11111": goodResponse("11111"),
		"22222": "I could not find anything useful in this abstract.",        // unparseable
		"33333": `{"source_document_id": "33333", "direction": "sideways"}`,  // schema_invalid
		"44444": strings.Replace(goodResponse("44444"), "44444", "99999", 1), // hallucination
	}}

	result, err := ExtractBatch(context.Background(), gen, docs, "metformin", batchCfg(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if result.SuccessCount != 1 || result.FailureCount != 3 {
		t.Errorf("counts = %d/%d, want 1/3", result.SuccessCount, result.FailureCount)
	}
	if result.SuccessCount+result.FailureCount != len(docs) {
		t.Errorf("success+failure = %d, want %d", result.SuccessCount+result.FailureCount, len(docs))
	}
	if len(result.Extractions) != result.SuccessCount {
		t.Errorf("len(extractions) = %d, want %d", len(result.Extractions), result.SuccessCount)
	}

	for _, ext := range result.Extractions {
		if !ext.Direction.Valid() || !ext.Model.Valid() || !ext.Confidence.Valid() || !ext.Endpoint.Valid() {
			t.Errorf("extraction carries out-of-set value: %+v", ext)
		}
	}

	wantReasons := map[string]types.FailureReason{
		"22222": types.ReasonUnparseable,
		"33333": types.ReasonSchemaInvalid,
		"44444": types.ReasonHallucination,
	}
	for id, want := range wantReasons {
		if got := result.Failures[id].Code; got != want {
			t.Errorf("failure reason for %s = %s, want %s", id, got, want)
		}
	}
}

func TestExtractBatchMaxDocuments(t *testing.T) {
	docs := []types.Document{testDoc("1"), testDoc("2"), testDoc("3")}
	gen := &scriptedGenerator{responses: map[string]string{
		"1": goodResponse("1"), "2": goodResponse("2"), "3": goodResponse("3"),
	}}

	cfg := batchCfg()
	cfg.MaxDocuments = 2
	result, err := ExtractBatch(context.Background(), gen, docs, "metformin", cfg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount+result.FailureCount != 2 {
		t.Errorf("processed = %d, want 2", result.SuccessCount+result.FailureCount)
	}
	if gen.calls != 2 {
		t.Errorf("backend calls = %d, want 2", gen.calls)
	}
}

func TestExtractBatchPerDocumentTimeout(t *testing.T) {
	cfg := batchCfg()
	cfg.PerDocumentTimeout = 5 * time.Millisecond

	result, err := ExtractBatch(context.Background(), blockingGenerator{}, []types.Document{testDoc("1")}, "metformin", cfg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if result.FailureCount != 1 {
		t.Fatalf("failure count = %d, want 1", result.FailureCount)
	}
	if got := result.Failures["1"].Code; got != types.ReasonTimeout {
		t.Errorf("reason = %s, want %s", got, types.ReasonTimeout)
	}
}

func TestExtractBatchCancellationKeepsCompleted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := []types.Document{testDoc("1"), testDoc("2"), testDoc("3")}
	gen := &scriptedGenerator{responses: map[string]string{
		"1": goodResponse("1"), "2": goodResponse("2"), "3": goodResponse("3"),
	}}

	// Cancel the batch after the first document completes.
	cancelAfterFirst := generatorFunc(func(c context.Context, prompt string, opts GenerateOptions) (string, error) {
		resp, err := gen.Generate(c, prompt, opts)
		cancel()
		return resp, err
	})

	result, err := ExtractBatch(ctx, cancelAfterFirst, docs, "metformin", batchCfg(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 1 {
		t.Errorf("success count = %d, want 1 (completed result kept)", result.SuccessCount)
	}
	if result.SuccessCount+result.FailureCount != 1 {
		t.Errorf("processed = %d, want 1 (remaining documents untouched)", result.SuccessCount+result.FailureCount)
	}
}

func TestExtractBatchBackendError(t *testing.T) {
	gen := &scriptedGenerator{err: fmt.Errorf("boom")}
	result, err := ExtractBatch(context.Background(), gen, []types.Document{testDoc("1")}, "metformin", batchCfg(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Failures["1"].Code; got != types.ReasonBackendError {
		t.Errorf("reason = %s, want %s", got, types.ReasonBackendError)
	}
}

// --- Repair ---

func TestRepairRecoversWrappedObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare object", goodResponse("1")},
		{"surrounding prose", "Sure, here is the extraction you asked for:\n" + goodResponse("1") + "\nLet me know if you need anything else."},
		{"code fence", "```json\n" + goodResponse("1") + "\n```"},
		{"trailing comma", `{"source_document_id": "1", "direction": "benefit", "model": "human", "endpoint": "safety", "mechanism": "", "confidence": "LOW", "drug_name": "metformin",}`},
		{"single quotes", `{'source_document_id': '1', 'direction': 'benefit', 'model': 'human', 'endpoint': 'safety', 'mechanism': '', 'confidence': 'LOW', 'drug_name': 'metformin'}`},
		{"smart quotes", "{“source_document_id”: “1”, “direction”: “benefit”, “model”: “human”, “endpoint”: “safety”, “mechanism”: “”, “confidence”: “LOW”, “drug_name”: “metformin”}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Repair(tt.raw)
			if err != nil {
				t.Fatalf("Repair failed: %v", err)
			}
			if obj.SourceDocumentID != "1" || obj.Direction != "benefit" {
				t.Errorf("recovered object = %+v", obj)
			}
		})
	}
}

func TestRepairNoObject(t *testing.T) {
	for _, raw := range []string{"", "no structure here at all", "[1, 2, 3]", "{unclosed"} {
		if _, err := Repair(raw); err == nil {
			t.Errorf("Repair(%q) should fail", raw)
		}
	}
}

func TestRepairDoesNotSynthesizeFields(t *testing.T) {
	obj, err := Repair(`{"direction": "benefit"}`)
	if err != nil {
		t.Fatal(err)
	}
	if obj.SourceDocumentID != "" || obj.Confidence != "" {
		t.Errorf("missing fields should stay empty, got %+v", obj)
	}
}

// --- Validate / Coerce ---

func validRaw() rawExtraction {
	return rawExtraction{
		SourceDocumentID: "12345",
		Direction:        "benefit",
		Model:            "human",
		Endpoint:         "biomarker",
		Mechanism:        "ampk activation",
		Confidence:       "HIGH",
		DrugName:         "metformin",
	}
}

func TestValidateValid(t *testing.T) {
	if v := Validate(validRaw()); len(v) != 0 {
		t.Errorf("violations = %v, want none", v)
	}
}

func TestValidateListsAllViolations(t *testing.T) {
	raw := validRaw()
	raw.Direction = "sideways"
	raw.Model = "zebrafish"
	raw.Confidence = "0.9"

	violations := Validate(raw)
	if len(violations) != 3 {
		t.Fatalf("violations = %v, want 3 entries", violations)
	}
	joined := strings.Join(violations, "\n")
	for _, field := range []string{"direction", "model", "confidence"} {
		if !strings.Contains(joined, field) {
			t.Errorf("violations missing field %s: %v", field, violations)
		}
	}
}

func TestValidateIdentifierShape(t *testing.T) {
	raw := validRaw()
	for _, bad := range []string{"", "doc id with spaces", ".hidden"} {
		raw.SourceDocumentID = bad
		if v := Validate(raw); len(v) == 0 {
			t.Errorf("identifier %q should be rejected", bad)
		}
	}
}

func TestCoerceSynonyms(t *testing.T) {
	tests := []struct {
		name string
		in   rawExtraction
		want rawExtraction
	}{
		{
			name: "case folding",
			in:   rawExtraction{Direction: "Benefit", Model: "HUMAN", Endpoint: "Safety", Confidence: "high"},
			want: rawExtraction{Direction: "benefit", Model: "human", Endpoint: "safety", Confidence: "HIGH"},
		},
		{
			name: "synonyms",
			in:   rawExtraction{Direction: "protective", Model: "rodent", Endpoint: "survival", Confidence: "moderate"},
			want: rawExtraction{Direction: "benefit", Model: "animal", Endpoint: "mortality", Confidence: "MEDIUM"},
		},
		{
			name: "unknown values pass through for re-validation",
			in:   rawExtraction{Direction: "sideways"},
			want: rawExtraction{Direction: "sideways"},
		},
		{
			name: "empty fields stay empty",
			in:   rawExtraction{},
			want: rawExtraction{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.in)
			if got != tt.want {
				t.Errorf("Coerce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- Hallucination check ---

func TestCheckHallucinationIDMismatch(t *testing.T) {
	ext := validRaw().typed()
	ext.SourceDocumentID = "99999"
	if reason := CheckHallucination(ext, testDoc("12345"), 0.2); reason == "" {
		t.Error("mismatched document ID should be flagged")
	}
}

func TestCheckHallucinationLowOverlap(t *testing.T) {
	ext := validRaw().typed()
	ext.Mechanism = "quantum entanglement of telomerase microtubules"
	if reason := CheckHallucination(ext, testDoc("12345"), 0.2); reason == "" {
		t.Error("fabricated mechanism should be flagged")
	}
}

func TestCheckHallucinationPasses(t *testing.T) {
	ext := validRaw().typed()
	ext.Mechanism = "amyloid clearance improved cognition"
	if reason := CheckHallucination(ext, testDoc("12345"), 0.2); reason != "" {
		t.Errorf("grounded mechanism flagged: %s", reason)
	}
	// Empty mechanism carries no assertion to check.
	ext.Mechanism = ""
	if reason := CheckHallucination(ext, testDoc("12345"), 0.2); reason != "" {
		t.Errorf("empty mechanism flagged: %s", reason)
	}
}
