// Package storage persists run history for later reporting.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cloudtally/cloudtally/types"
)

var bucketRuns = []byte("runs")

// RunRecord is one completed collection run.
type RunRecord struct {
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Summary     types.RunSummary `json:"summary"`
	Units       []UnitOutcome    `json:"units"`
}

// UnitOutcome is the per-unit slice of a run record. Errors are stored as
// text since the original values don't survive serialization.
type UnitOutcome struct {
	Service   string `json:"service"`
	Region    string `json:"region"`
	AccountID string `json:"account_id"`
	Count     int    `json:"count"`
	Error     string `json:"error,omitempty"`
}

// OutcomesFrom converts collection results into storable unit outcomes.
func OutcomesFrom(results []types.CollectionResult) []UnitOutcome {
	outcomes := make([]UnitOutcome, 0, len(results))
	for _, result := range results {
		outcome := UnitOutcome{
			Service:   result.Service,
			Region:    result.Region,
			AccountID: result.AccountID,
			Count:     result.Count,
		}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Store keeps run history in a local bbolt database.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the run history database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun appends a run record keyed by completion time.
func (s *Store) SaveRun(record RunRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	key := []byte(record.CompletedAt.UTC().Format(time.RFC3339Nano))
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(key, value)
	})
}

// LastRun returns the most recent run, or nil when none exist.
func (s *Store) LastRun() (*RunRecord, error) {
	var record *RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, value := tx.Bucket(bucketRuns).Cursor().Last()
		if value == nil {
			return nil
		}
		record = &RunRecord{}
		return json.Unmarshal(value, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load last run: %w", err)
	}
	return record, nil
}

// Runs returns up to limit runs, newest first.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	var records []RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketRuns).Cursor()
		for key, value := cursor.Last(); key != nil; key, value = cursor.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record RunRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	return records, nil
}
