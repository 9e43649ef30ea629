package rank

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// --- mock scorers ---

type fixedScorer struct {
	name   string
	scores []float64
	err    error
}

func (f *fixedScorer) Name() string { return f.name }

func (f *fixedScorer) Score(_ context.Context, _ string, docs []types.Document) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	return make([]float64, len(docs)), nil
}

func testDocs() []types.Document {
	return []types.Document{
		{ID: "100", Title: "Metformin and Alzheimer disease", Abstract: "Metformin reduced amyloid burden and improved cognition in patients."},
		{ID: "200", Title: "Statin pharmacology", Abstract: "A review of statin lipid effects."},
		{ID: "300", Title: "Cognition trial results", Abstract: "Metformin treatment improved cognition scores in a randomized trial of Alzheimer patients."},
		{ID: "400", Title: "", Abstract: ""},
	}
}

func lexicalPipeline() *Pipeline {
	cfg := types.DefaultRankConfig()
	cfg.EnableHybrid = false
	cfg.EnableCrossEncoder = false
	return &Pipeline{Config: cfg}
}

// --- lexical stage ---

func TestRankLexicalOrdering(t *testing.T) {
	out, err := lexicalPipeline().Rank(context.Background(), "metformin alzheimer cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(out.Results))
	}

	// The two metformin/cognition papers must outrank the statin review and
	// the empty document.
	top := map[string]bool{out.Results[0].Document.ID: true, out.Results[1].Document.ID: true}
	if !top["100"] || !top["300"] {
		t.Errorf("top two = %v, want documents 100 and 300", out.Results[:2])
	}
	if out.Results[len(out.Results)-1].Document.ID != "400" {
		t.Errorf("empty document should rank last, got %s", out.Results[len(out.Results)-1].Document.ID)
	}
}

func TestRankDeterministic(t *testing.T) {
	p := &Pipeline{Config: types.DefaultRankConfig(), Secondary: TermVectorScorer{}}

	first, err := p.Rank(context.Background(), "metformin cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Rank(context.Background(), "metformin cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}

	// Exact equality: same ordering and bit-identical scores.
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated rank differs:\n%v\n%v", first, second)
	}
}

func TestRankTopK(t *testing.T) {
	out, err := lexicalPipeline().Rank(context.Background(), "metformin", testDocs(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(out.Results))
	}
}

func TestRankEmptyInputs(t *testing.T) {
	out, err := lexicalPipeline().Rank(context.Background(), "metformin", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(out.Results))
	}

	// All-empty documents are scored zero, not rejected.
	empty := []types.Document{{ID: "1"}, {ID: "2"}}
	out, err = lexicalPipeline().Rank(context.Background(), "metformin", empty, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range out.Results {
		if r.Score != 0 {
			t.Errorf("score for empty document = %f, want 0", r.Score)
		}
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	docs := []types.Document{
		{ID: "a", Title: "metformin study", Abstract: "metformin"},
		{ID: "b", Title: "metformin study", Abstract: "metformin"},
		{ID: "c", Title: "metformin study", Abstract: "metformin"},
	}
	out, err := lexicalPipeline().Rank(context.Background(), "metformin", docs, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if out.Results[i].Document.ID != want {
			t.Errorf("results[%d] = %s, want %s (input order on ties)", i, out.Results[i].Document.ID, want)
		}
	}
}

// --- field boost ---

func TestTitleBoostPromotesTitleMatch(t *testing.T) {
	docs := []types.Document{
		{ID: "abs", Title: "A trial report", Abstract: "metformin outcome metformin outcome metformin outcome"},
		{ID: "title", Title: "Metformin outcome", Abstract: "results discussed"},
	}

	cfg := types.DefaultRankConfig()
	cfg.EnableHybrid = false
	cfg.EnableCrossEncoder = false
	cfg.EnableFieldBoost = false
	noBoost, err := (&Pipeline{Config: cfg}).Rank(context.Background(), "metformin outcome", docs, 0)
	if err != nil {
		t.Fatal(err)
	}

	cfg.EnableFieldBoost = true
	cfg.TitleBoost = 5
	boosted, err := (&Pipeline{Config: cfg}).Rank(context.Background(), "metformin outcome", docs, 0)
	if err != nil {
		t.Fatal(err)
	}

	if noBoost.Results[0].Document.ID != "abs" {
		t.Fatalf("without boost, term-heavy abstract should lead, got %s", noBoost.Results[0].Document.ID)
	}
	if boosted.Results[0].Document.ID != "title" {
		t.Errorf("with boost, title match should lead, got %s", boosted.Results[0].Document.ID)
	}
}

// --- hybrid stage ---

func TestRankWeightedHybrid(t *testing.T) {
	docs := testDocs()
	cfg := types.DefaultRankConfig()
	cfg.Strategy = types.HybridWeighted
	cfg.HybridWeight = 0.0 // secondary signal only
	cfg.EnableFieldBoost = false
	cfg.EnableCrossEncoder = false

	// Secondary signal inverts the lexical preference.
	p := &Pipeline{Config: cfg, Secondary: &fixedScorer{name: "inverse", scores: []float64{0.1, 0.9, 0.2, 0.3}}}
	out, err := p.Rank(context.Background(), "metformin", docs, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Results[0].Document.ID != "200" {
		t.Errorf("with weight 0, secondary signal should dominate, got %s", out.Results[0].Document.ID)
	}
}

func TestRankHybridScorerFailureFallsBack(t *testing.T) {
	cfg := types.DefaultRankConfig()
	cfg.EnableCrossEncoder = false

	p := &Pipeline{Config: cfg, Secondary: &fixedScorer{name: "down", err: fmt.Errorf("connection refused")}}
	out, err := p.Rank(context.Background(), "metformin cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(out.Results))
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "down") {
		t.Errorf("warnings = %v, want one naming the failed scorer", out.Warnings)
	}

	lexOnly, err := lexicalPipeline().Rank(context.Background(), "metformin cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Results, lexOnly.Results) {
		t.Errorf("degraded hybrid should equal lexical ranking")
	}
}

// --- cross-encoder stage ---

func TestRankCrossEncoderReorders(t *testing.T) {
	cfg := types.DefaultRankConfig()
	cfg.EnableHybrid = false
	cfg.EnableCrossEncoder = true
	cfg.CrossEncoderTopN = 2

	// Cross-encoder prefers the second shortlist entry.
	p := &Pipeline{Config: cfg, Cross: &fixedScorer{name: "xenc", scores: []float64{0.1, 0.9}}}
	out, err := p.Rank(context.Background(), "metformin alzheimer cognition", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}

	base, _ := lexicalPipeline().Rank(context.Background(), "metformin alzheimer cognition", testDocs(), 0)
	if out.Results[0].Document.ID != base.Results[1].Document.ID {
		t.Errorf("cross-encoder should promote shortlist position 2, got %s", out.Results[0].Document.ID)
	}
	// Tail beyond the shortlist is untouched.
	if out.Results[3].Document.ID != base.Results[3].Document.ID {
		t.Errorf("tail order changed: %s", out.Results[3].Document.ID)
	}
}

func TestRankCrossEncoderFailsOpen(t *testing.T) {
	cfg := types.DefaultRankConfig()
	cfg.EnableHybrid = false
	cfg.EnableCrossEncoder = true

	p := &Pipeline{Config: cfg, Cross: &fixedScorer{name: "xenc", err: fmt.Errorf("timeout")}}
	out, err := p.Rank(context.Background(), "metformin", testDocs(), 0)
	if err != nil {
		t.Fatal(err)
	}

	base, _ := lexicalPipeline().Rank(context.Background(), "metformin", testDocs(), 0)
	if !reflect.DeepEqual(out.Results, base.Results) {
		t.Errorf("failed cross-encoder must keep incoming order")
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "xenc") {
		t.Errorf("warnings = %v, want one naming the cross-encoder", out.Warnings)
	}
}

// --- tokenization ---

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Metformin-treated (n=30)", []string{"metformin", "treated", "n", "30"}},
		{"", nil},
		{"   ", nil},
		{"AMP-activated protein kinase", []string{"amp", "activated", "protein", "kinase"}},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
