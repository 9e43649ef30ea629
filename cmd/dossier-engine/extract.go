// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/meshbio/dossier-engine/internal/extract"
	"github.com/meshbio/dossier-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured evidence from abstracts via the generative backend",
	Long: `Extract sends each candidate abstract to the generative backend and
validates the returned evidence records against closed vocabularies:
direction, model, endpoint, and confidence. Malformed responses go through
JSON repair and synonym coercion before rejection; extractions that
reference the wrong document or assert unsupported mechanisms are flagged
as suspected hallucinations.

The batch result is written to the output directory as YAML. A batch with
per-document failures exits non-zero so pipelines notice degraded runs.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	drug, _ := cmd.Flags().GetString("drug")
	if drug == "" {
		return fmt.Errorf("--drug is required")
	}

	docsPath, _ := cmd.Flags().GetString("documents")
	docs, err := loadDocuments(docsPath)
	if err != nil {
		return err
	}

	cfg := extractionConfigFromFlags(cmd)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: place it in .secrets/anthropic-api-key or set DOSSIER_ENGINE_ANTHROPIC_API_KEY")
	}

	backend := &extract.ClaudeBackend{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Client:     &http.Client{Timeout: cfg.PerDocumentTimeout + 30*time.Second},
		MaxRetries: cfg.MaxRetries,
	}

	batch, err := extract.ExtractBatch(context.Background(), backend, docs, drug, cfg, os.Stdout)
	if err != nil {
		return err
	}

	outPath, err := writeBatchResult(cfg.OutputDir, batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nbatch %s: %d extracted, %d failed -> %s\n",
		batch.BatchID, batch.SuccessCount, batch.FailureCount, outPath)

	if batch.FailureCount > 0 {
		return fmt.Errorf("%d document(s) failed extraction", batch.FailureCount)
	}
	return nil
}

func extractionConfigFromFlags(cmd *cobra.Command) types.ExtractionConfig {
	cfg := types.DefaultExtractionConfig()

	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	} else if v := viper.GetString("extraction.model"); v != "" {
		cfg.Model = v
	}
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("anthropic_api_key")
	}
	cfg.APIKey = secretDefault("anthropic-api-key", apiKey)

	if v, _ := cmd.Flags().GetInt("max-documents"); cmd.Flags().Changed("max-documents") {
		cfg.MaxDocuments = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); cmd.Flags().Changed("timeout") {
		cfg.PerDocumentTimeout = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetBool("stream"); v {
		cfg.Stream = true
	}
	return cfg
}

func writeBatchResult(dir string, batch types.BatchResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(&batch)
	if err != nil {
		return "", fmt.Errorf("encoding batch result: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", batch.DrugName, batch.BatchID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing batch result: %w", err)
	}
	return path, nil
}

func init() {
	extractCmd.Flags().String("documents", "corpus/documents.yaml", "YAML file of candidate documents")
	extractCmd.Flags().String("drug", "", "drug name the batch concerns (required)")
	extractCmd.Flags().String("model", "", "backend model identifier")
	extractCmd.Flags().String("api-key", "", "backend API key (overrides secrets)")
	extractCmd.Flags().Int("max-documents", 25, "maximum documents per batch")
	extractCmd.Flags().Duration("timeout", 60*time.Second, "per-document backend deadline")
	extractCmd.Flags().String("output-dir", "dossiers/extracted", "directory for batch result YAML")
	extractCmd.Flags().Bool("stream", false, "request a streamed backend response")

	rootCmd.AddCommand(extractCmd)
}
