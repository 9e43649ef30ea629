// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshbio/dossier-engine/internal/rank"
	"github.com/meshbio/dossier-engine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank [query]",
	Short: "Rank candidate abstracts against a query",
	Long: `Rank scores a file of candidate abstracts against a free-text query
using BM25 with optional title boosting, a hybrid secondary signal, and
cross-encoder reordering of the shortlist. Output is deterministic for
identical inputs and configuration.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	docsPath, _ := cmd.Flags().GetString("documents")
	docs, err := loadDocuments(docsPath)
	if err != nil {
		return err
	}

	cfg := rankConfigFromFlags(cmd)
	pipeline := &rank.Pipeline{Config: cfg}
	if cfg.EnableHybrid {
		pipeline.Secondary = rank.TermVectorScorer{}
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	out, err := pipeline.Rank(context.Background(), query, docs, topK)
	if err != nil {
		return err
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRankOutput(out.Results, jsonOutput)
}

func rankConfigFromFlags(cmd *cobra.Command) types.RankConfig {
	cfg := types.DefaultRankConfig()

	if v, err := cmd.Flags().GetFloat64("bm25-k1"); err == nil && cmd.Flags().Changed("bm25-k1") {
		cfg.BM25K1 = v
	}
	if v, err := cmd.Flags().GetFloat64("bm25-b"); err == nil && cmd.Flags().Changed("bm25-b") {
		cfg.BM25B = v
	}
	if v, _ := cmd.Flags().GetBool("no-title-boost"); v {
		cfg.EnableFieldBoost = false
	}
	if v, _ := cmd.Flags().GetBool("no-hybrid"); v {
		cfg.EnableHybrid = false
	}
	if v, _ := cmd.Flags().GetString("strategy"); v != "" {
		cfg.Strategy = types.HybridStrategy(v)
	}
	if v, err := cmd.Flags().GetFloat64("hybrid-weight"); err == nil && cmd.Flags().Changed("hybrid-weight") {
		cfg.HybridWeight = v
	}
	return cfg
}

func formatRankOutput(results []types.RankedResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-12s  %s\n", "Rank", "ID", "Score", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for i, r := range results {
		title := r.Document.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-12.4f  %s\n", i+1, r.Document.ID, r.Score, title)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func init() {
	rankCmd.Flags().String("documents", "corpus/documents.yaml", "YAML file of candidate documents")
	rankCmd.Flags().Int("top-k", 0, "return only the top K results (0 = all)")
	rankCmd.Flags().Float64("bm25-k1", 1.2, "BM25 term-frequency saturation")
	rankCmd.Flags().Float64("bm25-b", 0.75, "BM25 length normalization")
	rankCmd.Flags().Bool("no-title-boost", false, "disable the title-match bonus")
	rankCmd.Flags().Bool("no-hybrid", false, "disable the secondary relevance signal")
	rankCmd.Flags().String("strategy", "", "hybrid combination strategy: rrf or weighted")
	rankCmd.Flags().Float64("hybrid-weight", 0.7, "lexical share for the weighted strategy")
	rankCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(rankCmd)
}
