// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dossier

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meshbio/dossier-engine/pkg/types"
)

const dbFile = "dossier.db"

// Store manages the evidence database: raw extractions, aggregated dossiers,
// and recorded gate decisions. Decisions are append-only; a drug evaluated
// twice has two decision rows.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the SQLite database at dataDir/dossier.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS extractions (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			drug_name TEXT NOT NULL,
			source_document_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			model TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			mechanism TEXT,
			confidence TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_drug ON extractions(drug_name)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_batch ON extractions(batch_id)`,
		`CREATE TABLE IF NOT EXISTS dossiers (
			drug_id TEXT PRIMARY KEY,
			canonical_name TEXT NOT NULL,
			total_pmids INTEGER NOT NULL,
			evidence_counts TEXT NOT NULL,
			model_counts TEXT NOT NULL,
			mechanism_keywords TEXT,
			safety_concerns TEXT,
			repurposing_signals TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			drug_id TEXT NOT NULL,
			canonical_name TEXT NOT NULL,
			decision TEXT NOT NULL,
			channel TEXT,
			reasons TEXT,
			total_score REAL NOT NULL,
			metrics TEXT NOT NULL,
			decided_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_drug ON decisions(drug_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveBatch persists every successful extraction in the batch inside one
// transaction. Failures are summary data and are not stored.
func (s *Store) SaveBatch(ctx context.Context, batch types.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO extractions
			(id, batch_id, drug_name, source_document_id, direction, model,
			 endpoint, mechanism, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, ext := range batch.Extractions {
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(), batch.BatchID, batch.DrugName,
			ext.SourceDocumentID, string(ext.Direction), string(ext.Model),
			string(ext.Endpoint), ext.Mechanism, string(ext.Confidence), now,
		)
		if err != nil {
			return fmt.Errorf("inserting extraction for %s: %w", ext.SourceDocumentID, err)
		}
	}
	return tx.Commit()
}

// LoadExtractions returns all stored extractions for a drug, oldest batch
// first, in insertion order.
func (s *Store) LoadExtractions(ctx context.Context, drugName string) ([]types.EvidenceExtraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_document_id, direction, model, endpoint, mechanism, confidence, drug_name
		 FROM extractions WHERE drug_name = ? ORDER BY created_at, rowid`, drugName)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()

	var out []types.EvidenceExtraction
	for rows.Next() {
		var ext types.EvidenceExtraction
		var direction, model, endpoint, confidence string
		if err := rows.Scan(&ext.SourceDocumentID, &direction, &model,
			&endpoint, &ext.Mechanism, &confidence, &ext.DrugName); err != nil {
			return nil, fmt.Errorf("scanning extraction: %w", err)
		}
		ext.Direction = types.Direction(direction)
		ext.Model = types.EvidenceModel(model)
		ext.Endpoint = types.Endpoint(endpoint)
		ext.Confidence = types.Confidence(confidence)
		out = append(out, ext)
	}
	return out, rows.Err()
}

// SaveDossier upserts the aggregated dossier for a drug.
func (s *Store) SaveDossier(ctx context.Context, d types.Dossier) error {
	counts, _ := json.Marshal(d.EvidenceCount)
	models, _ := json.Marshal(d.ModelCounts)
	keywords, _ := json.Marshal(d.MechanismKeywords)
	concerns, _ := json.Marshal(d.SafetyConcerns)
	signals, _ := json.Marshal(d.RepurposingSignals)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dossiers
			(drug_id, canonical_name, total_pmids, evidence_counts, model_counts,
			 mechanism_keywords, safety_concerns, repurposing_signals, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(drug_id) DO UPDATE SET
			canonical_name=excluded.canonical_name,
			total_pmids=excluded.total_pmids,
			evidence_counts=excluded.evidence_counts,
			model_counts=excluded.model_counts,
			mechanism_keywords=excluded.mechanism_keywords,
			safety_concerns=excluded.safety_concerns,
			repurposing_signals=excluded.repurposing_signals,
			updated_at=excluded.updated_at`,
		d.DrugID, d.CanonicalName, d.TotalPMIDs,
		string(counts), string(models), string(keywords),
		string(concerns), string(signals),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting dossier %s: %w", d.DrugID, err)
	}
	return nil
}

// LoadDossier returns the stored dossier for a drug ID.
func (s *Store) LoadDossier(ctx context.Context, drugID string) (types.Dossier, error) {
	var d types.Dossier
	var counts, models, keywords, concerns, signals string
	err := s.db.QueryRowContext(ctx,
		`SELECT drug_id, canonical_name, total_pmids, evidence_counts,
			model_counts, mechanism_keywords, safety_concerns, repurposing_signals
		 FROM dossiers WHERE drug_id = ?`, drugID,
	).Scan(&d.DrugID, &d.CanonicalName, &d.TotalPMIDs,
		&counts, &models, &keywords, &concerns, &signals)
	if err == sql.ErrNoRows {
		return types.Dossier{}, fmt.Errorf("dossier %s not found", drugID)
	}
	if err != nil {
		return types.Dossier{}, fmt.Errorf("loading dossier %s: %w", drugID, err)
	}

	for _, col := range []struct {
		raw  string
		into any
	}{
		{counts, &d.EvidenceCount},
		{models, &d.ModelCounts},
		{keywords, &d.MechanismKeywords},
		{concerns, &d.SafetyConcerns},
		{signals, &d.RepurposingSignals},
	} {
		if col.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw), col.into); err != nil {
			return types.Dossier{}, fmt.Errorf("decoding dossier %s: %w", drugID, err)
		}
	}
	return d, nil
}

// ListDossiers returns stored dossiers ordered by canonical name, capped at
// the configured maximum.
func (s *Store) ListDossiers(ctx context.Context) ([]types.Dossier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT drug_id FROM dossiers ORDER BY canonical_name LIMIT ?`, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("listing dossiers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning dossier row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]types.Dossier, 0, len(ids))
	for _, id := range ids {
		d, err := s.LoadDossier(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SaveDecision appends a gate decision to the audit trail and returns the
// generated record ID.
func (s *Store) SaveDecision(ctx context.Context, gd types.GateDecision) (string, error) {
	reasons, _ := json.Marshal(gd.Reasons)
	metrics, _ := json.Marshal(gd.Metrics)

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions
			(id, drug_id, canonical_name, decision, channel, reasons,
			 total_score, metrics, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, gd.DrugID, gd.CanonicalName, string(gd.Decision), gd.Channel,
		string(reasons), gd.Metrics.TotalScore, string(metrics),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("recording decision for %s: %w", gd.DrugID, err)
	}
	return id, nil
}

// DecisionRecord is a stored gate decision with its audit timestamp.
type DecisionRecord struct {
	ID        string
	DecidedAt string
	Decision  types.GateDecision
}

// ListDecisions returns the decision history for a drug, newest first.
// An empty drugID lists decisions across all drugs.
func (s *Store) ListDecisions(ctx context.Context, drugID string) ([]DecisionRecord, error) {
	query := `SELECT id, drug_id, canonical_name, decision, channel, reasons, metrics, decided_at
		 FROM decisions`
	args := []any{}
	if drugID != "" {
		query += ` WHERE drug_id = ?`
		args = append(args, drugID)
	}
	query += ` ORDER BY decided_at DESC, id LIMIT ?`
	args = append(args, s.maxResults)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var decision, reasons, metrics string
		if err := rows.Scan(&rec.ID, &rec.Decision.DrugID, &rec.Decision.CanonicalName,
			&decision, &rec.Decision.Channel, &reasons, &metrics, &rec.DecidedAt); err != nil {
			return nil, fmt.Errorf("scanning decision row: %w", err)
		}
		rec.Decision.Decision = types.Decision(decision)
		if reasons != "" {
			if err := json.Unmarshal([]byte(reasons), &rec.Decision.Reasons); err != nil {
				return nil, fmt.Errorf("decoding decision reasons: %w", err)
			}
		}
		if metrics != "" {
			if err := json.Unmarshal([]byte(metrics), &rec.Decision.Metrics); err != nil {
				return nil, fmt.Errorf("decoding decision metrics: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
