// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// loadDocuments reads a YAML file holding a list of documents (candidate
// abstracts with id, title, abstract fields).
func loadDocuments(path string) ([]types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading documents file: %w", err)
	}
	var docs []types.Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing documents file %s: %w", path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("documents file %s is empty", path)
	}
	return docs, nil
}

// loadDossierFile reads a single dossier from a YAML file.
func loadDossierFile(path string) (types.Dossier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Dossier{}, fmt.Errorf("reading dossier file: %w", err)
	}
	var d types.Dossier
	if err := yaml.Unmarshal(data, &d); err != nil {
		return types.Dossier{}, fmt.Errorf("parsing dossier file %s: %w", path, err)
	}
	if d.DrugID == "" {
		return types.Dossier{}, fmt.Errorf("dossier file %s has no drug_id", path)
	}
	return d, nil
}

// loadBatchFile reads an extraction batch result from a YAML file.
func loadBatchFile(path string) (types.BatchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.BatchResult{}, fmt.Errorf("reading batch file: %w", err)
	}
	var batch types.BatchResult
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return types.BatchResult{}, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	return batch, nil
}
