// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshbio/dossier-engine/internal/dossier"
	"github.com/meshbio/dossier-engine/internal/gate"
	"github.com/meshbio/dossier-engine/internal/score"
	"github.com/meshbio/dossier-engine/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a dossier and apply the decision gates",
	Long: `Evaluate computes the five-component score for an aggregated dossier
and runs every decision gate against it. All gates are evaluated; a NO-GO
lists every violated gate, not just the first. Use --record to append the
decision to the store's audit trail.`,
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	d, store, err := resolveDossier(ctx, cmd)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	breakdown := score.Score(d, types.DefaultScoreConfig())
	decision, err := gate.Evaluate(d, breakdown, gateConfigFromFlags(cmd))
	if err != nil {
		return err
	}

	if record, _ := cmd.Flags().GetBool("record"); record {
		if store == nil {
			store, err = openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
		}
		id, err := store.SaveDecision(ctx, decision)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "recorded decision %s\n", id)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatEvaluateOutput(breakdown, decision, jsonOutput)
}

// resolveDossier loads the dossier from --dossier (YAML file) or --drug (the
// store). The returned store is non-nil only when the store path was used.
func resolveDossier(ctx context.Context, cmd *cobra.Command) (types.Dossier, *dossier.Store, error) {
	dossierPath, _ := cmd.Flags().GetString("dossier")
	drugID, _ := cmd.Flags().GetString("drug")

	switch {
	case dossierPath != "" && drugID != "":
		return types.Dossier{}, nil, fmt.Errorf("--dossier and --drug are mutually exclusive")
	case dossierPath != "":
		d, err := loadDossierFile(dossierPath)
		return d, nil, err
	case drugID != "":
		store, err := openStore(cmd)
		if err != nil {
			return types.Dossier{}, nil, err
		}
		d, err := store.LoadDossier(ctx, drugID)
		if err != nil {
			store.Close()
			return types.Dossier{}, nil, err
		}
		return d, store, nil
	default:
		return types.Dossier{}, nil, fmt.Errorf("provide --dossier FILE or --drug ID")
	}
}

func openStore(cmd *cobra.Command) (*dossier.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return dossier.NewStore(types.StoreConfig{DataDir: dataDir})
}

func gateConfigFromFlags(cmd *cobra.Command) types.GateConfig {
	cfg := types.DefaultGateConfig()

	if v, _ := cmd.Flags().GetFloat64("go-threshold"); cmd.Flags().Changed("go-threshold") {
		cfg.GoThreshold = v
	}
	if v, _ := cmd.Flags().GetFloat64("maybe-threshold"); cmd.Flags().Changed("maybe-threshold") {
		cfg.MaybeThreshold = v
	}
	if v, _ := cmd.Flags().GetInt("min-benefit-papers"); cmd.Flags().Changed("min-benefit-papers") {
		cfg.MinBenefitPapers = v
	}
	if v, _ := cmd.Flags().GetInt("min-total-pmids"); cmd.Flags().Changed("min-total-pmids") {
		cfg.MinTotalPMIDs = v
	}
	if v, _ := cmd.Flags().GetFloat64("max-harm-ratio"); cmd.Flags().Changed("max-harm-ratio") {
		cfg.MaxHarmRatio = v
	}
	return cfg
}

func formatEvaluateOutput(breakdown types.ScoreBreakdown, decision types.GateDecision, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Score    types.ScoreBreakdown `json:"score"`
			Decision types.GateDecision   `json:"decision"`
		}{breakdown, decision})
	}

	fmt.Fprintf(os.Stdout, "%s (%s)\n", decision.CanonicalName, decision.DrugID)
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 50))
	fmt.Fprintf(os.Stdout, "evidence strength       %6.2f\n", breakdown.EvidenceStrength)
	fmt.Fprintf(os.Stdout, "mechanism plausibility  %6.2f\n", breakdown.MechanismPlausibility)
	fmt.Fprintf(os.Stdout, "translatability         %6.2f\n", breakdown.Translatability)
	fmt.Fprintf(os.Stdout, "safety fit              %6.2f\n", breakdown.SafetyFit)
	fmt.Fprintf(os.Stdout, "practicality            %6.2f\n", breakdown.Practicality)
	fmt.Fprintf(os.Stdout, "total                   %6.2f\n\n", breakdown.Total)

	fmt.Fprintf(os.Stdout, "decision: %s", decision.Decision)
	if decision.Channel != "" {
		fmt.Fprintf(os.Stdout, " (channel: %s)", decision.Channel)
	}
	fmt.Fprintln(os.Stdout)
	for _, reason := range decision.Reasons {
		fmt.Fprintf(os.Stdout, "  - %s\n", reason)
	}
	return nil
}

func init() {
	evaluateCmd.Flags().String("dossier", "", "YAML dossier file to evaluate")
	evaluateCmd.Flags().String("drug", "", "drug ID to load from the store")
	evaluateCmd.Flags().String("data-dir", "dossiers", "base directory for the dossier store")
	evaluateCmd.Flags().Bool("record", false, "append the decision to the audit trail")
	evaluateCmd.Flags().Float64("go-threshold", 60, "minimum total score for GO")
	evaluateCmd.Flags().Float64("maybe-threshold", 40, "minimum total score to avoid NO-GO")
	evaluateCmd.Flags().Int("min-benefit-papers", 2, "minimum benefit-evidence papers")
	evaluateCmd.Flags().Int("min-total-pmids", 10, "minimum retrieved-paper coverage")
	evaluateCmd.Flags().Float64("max-harm-ratio", 0.5, "maximum harm share of directional evidence")
	evaluateCmd.Flags().Bool("json", false, "output score and decision as JSON")

	rootCmd.AddCommand(evaluateCmd)
}
