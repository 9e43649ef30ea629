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
	"github.com/meshbio/dossier-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the dossier store (ingest, list, decisions)",
	Long: `Store manages the local SQLite evidence database. Use subcommands to
ingest extraction batches, list aggregated dossiers, or review the decision
audit trail.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest [batch-files...]",
	Short: "Ingest extraction batches and rebuild the drug's dossier",
	Long: `Ingest loads batch result YAML files into the store, then rebuilds the
aggregated dossier for each affected drug from all of its stored
extractions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	store, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	totalPMIDs, _ := cmd.Flags().GetInt("total-pmids")

	drugs := make(map[string]bool)
	for _, path := range args {
		batch, err := loadBatchFile(path)
		if err != nil {
			return err
		}
		if err := store.SaveBatch(ctx, batch); err != nil {
			return err
		}
		drugs[batch.DrugName] = true
		fmt.Fprintf(os.Stdout, "ingested %s: %d extraction(s) for %s\n",
			batch.BatchID, len(batch.Extractions), batch.DrugName)
	}

	for drug := range drugs {
		exts, err := store.LoadExtractions(ctx, drug)
		if err != nil {
			return err
		}
		pmids := totalPMIDs
		if pmids <= 0 {
			pmids = len(exts)
		}
		d := dossier.Build(drugID(drug), drug, exts, pmids)
		if err := store.SaveDossier(ctx, d); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "dossier %s: %d extraction(s), %d keyword(s)\n",
			d.DrugID, d.EvidenceCount.Total(), len(d.MechanismKeywords))
	}
	return nil
}

// drugID derives a stable store identifier from the canonical name.
func drugID(name string) string {
	return "drug-" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aggregated dossiers",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	store, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	dossiers, err := store.ListDossiers(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dossiers)
	}

	if len(dossiers) == 0 {
		fmt.Println("No dossiers.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-16s  %6s  %7s  %4s  %8s\n",
		"Drug ID", "Name", "PMIDs", "Benefit", "Harm", "Concerns")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 76))
	for _, d := range dossiers {
		fmt.Fprintf(os.Stdout, "%-24s  %-16s  %6d  %7d  %4d  %8d\n",
			d.DrugID, d.CanonicalName, d.TotalPMIDs,
			d.EvidenceCount.Benefit, d.EvidenceCount.Harm, len(d.SafetyConcerns))
	}
	fmt.Fprintf(os.Stdout, "\n%d dossier(s)\n", len(dossiers))
	return nil
}

// --- decisions subcommand ---

var storeDecisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show the decision audit trail",
	RunE:  runStoreDecisions,
}

func runStoreDecisions(cmd *cobra.Command, args []string) error {
	store, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	drug, _ := cmd.Flags().GetString("drug")
	records, err := store.ListDecisions(context.Background(), drug)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%s  %-24s  %-6s  score %.1f",
			rec.DecidedAt, rec.Decision.DrugID, rec.Decision.Decision,
			rec.Decision.Metrics.TotalScore)
		if rec.Decision.Channel != "" {
			fmt.Fprintf(os.Stdout, "  [%s]", rec.Decision.Channel)
		}
		fmt.Fprintln(os.Stdout)
		for _, reason := range rec.Decision.Reasons {
			fmt.Fprintf(os.Stdout, "    - %s\n", reason)
		}
	}
	return nil
}

// --- shared helpers ---

func openStoreCmd(cmd *cobra.Command) (*dossier.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return dossier.NewStore(types.StoreConfig{DataDir: dataDir, MaxResults: maxResults})
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("data-dir", "dossiers", "base directory for the dossier store")
	storeCmd.PersistentFlags().Int("max-results", 50, "maximum number of listing results")

	storeIngestCmd.Flags().Int("total-pmids", 0, "retrieved-paper count for the dossier (0 = use extraction count)")

	storeListCmd.Flags().Bool("json", false, "output dossiers as JSON")

	storeDecisionsCmd.Flags().String("drug", "", "filter by drug ID")
	storeDecisionsCmd.Flags().Bool("json", false, "output decisions as JSON")

	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDecisionsCmd)

	rootCmd.AddCommand(storeCmd)
}
