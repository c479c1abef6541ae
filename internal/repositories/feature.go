package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/cratedig/internal/features"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
)

// FeatureRepository stores the feature table of a crawl run, one row per track.
//
// Each row keeps its feature vector as JSON and, once clustered, its cluster label.
type FeatureRepository struct {
	db *sql.DB
}

// NewFeatureRepository creates a new FeatureRepository with the given database connection
func NewFeatureRepository(db *sql.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// SaveTable replaces the stored rows of runID with table. Labels are stored when the table has them.
//
// A table with repeated identifiers keeps the last row of each.
func (r *FeatureRepository) SaveTable(runID string, table *features.Table) error {
	labels, labelled := table.Labels()
	ids := table.IDs()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM track_features WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear features of run %s: %w", runID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO track_features (run_id, track_id, position, data, cluster, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, id := range ids {
		fv, err := table.Vector(i)
		if err != nil {
			return err
		}
		data, err := shared.MarshalJSON(fv, false)
		if err != nil {
			return fmt.Errorf("failed to encode features of %s: %w", id, err)
		}

		var cluster sql.NullInt64
		if labelled {
			cluster = sql.NullInt64{Int64: int64(labels[i]), Valid: true}
		}

		if _, err := stmt.Exec(runID, id, i, string(data), cluster, now); err != nil {
			return fmt.Errorf("failed to store features of %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadTable rebuilds the stored table of runID in its original row order.
// The cluster column is restored only when every row has a label.
func (r *FeatureRepository) LoadTable(runID string) (*features.Table, error) {
	rows, err := r.db.Query(
		"SELECT track_id, data, cluster FROM track_features WHERE run_id = ? ORDER BY position ASC", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var (
		ids      []string
		vectors  []*models.FeatureVector
		labels   []int
		complete = true
	)
	for rows.Next() {
		var (
			id      string
			data    string
			cluster sql.NullInt64
		)
		if err := rows.Scan(&id, &data, &cluster); err != nil {
			return nil, fmt.Errorf("failed to scan features: %w", err)
		}

		var fv models.FeatureVector
		if err := json.Unmarshal([]byte(data), &fv); err != nil {
			return nil, fmt.Errorf("failed to decode features of %s: %w", id, err)
		}

		ids = append(ids, id)
		vectors = append(vectors, &fv)
		labels = append(labels, int(cluster.Int64))
		complete = complete && cluster.Valid
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no features stored for run %s", shared.ErrEmptyTable, runID)
	}

	table, err := features.NewTable(ids, vectors)
	if err != nil {
		return nil, err
	}
	if complete {
		if err := table.SetLabels(labels); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// SetClusters stores one label per track id of runID.
func (r *FeatureRepository) SetClusters(runID string, trackIDs []string, labels []int) error {
	if len(trackIDs) != len(labels) {
		return fmt.Errorf("%w: %d labels for %d tracks", shared.ErrInvalidInput, len(labels), len(trackIDs))
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, id := range trackIDs {
		result, err := tx.Exec(
			"UPDATE track_features SET cluster = ?, updated_at = ? WHERE run_id = ? AND track_id = ?",
			labels[i], now, runID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to set cluster of %s: %w", id, err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s has no stored features in run %s", shared.ErrTrackNotFound, id, runID)
		}
	}

	return tx.Commit()
}

// Cluster returns the track ids of runID assigned to label, in row order.
func (r *FeatureRepository) Cluster(runID string, label int) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT track_id FROM track_features WHERE run_id = ? AND cluster = ? ORDER BY position ASC", runID, label,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
