package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
)

const crawlRunColumns = `
	id, sequence, deep_lookup, categories, skipped_categories, playlists, albums,
	track_count, output_file, started_at, finished_at, created_at, updated_at, deleted_at
`

// CrawlRunRepository implements models.Repository[*models.CrawlRun].
type CrawlRunRepository struct {
	db *sql.DB
}

// NewCrawlRunRepository creates a new CrawlRunRepository with the given database connection
func NewCrawlRunRepository(db *sql.DB) *CrawlRunRepository {
	return &CrawlRunRepository{db: db}
}

// Create inserts a run with a fresh sequence number. The run keeps its own id when it has one.
func (r *CrawlRunRepository) Create(run *models.CrawlRun) error {
	if run.RunID == "" {
		run.RunID = shared.GenerateID()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "crawl_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO crawl_runs (` + crawlRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = r.db.Exec(query,
		run.RunID,
		sequence,
		run.DeepLookup,
		run.Categories,
		run.SkippedCategories,
		run.Playlists,
		run.Albums,
		run.TrackCount,
		run.OutputFile,
		run.StartedAt,
		run.FinishedAt,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl run: %w", err)
	}

	run.Sequence = sequence
	run.Created = now
	run.Updated = now
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *CrawlRunRepository) Get(id string) (*models.CrawlRun, error) {
	query := `SELECT ` + crawlRunColumns + ` FROM crawl_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, err
}

// Update rewrites the counters and output file of a run
func (r *CrawlRunRepository) Update(run *models.CrawlRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE crawl_runs
		SET categories = ?, skipped_categories = ?, playlists = ?, albums = ?, track_count = ?,
			output_file = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		run.Categories,
		run.SkippedCategories,
		run.Playlists,
		run.Albums,
		run.TrackCount,
		run.OutputFile,
		run.FinishedAt,
		now,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update crawl run: %w", err)
	}
	if err := expectRow(result, run.RunID); err != nil {
		return err
	}

	run.Updated = now
	return nil
}

// Delete soft-deletes a run by ID
func (r *CrawlRunRepository) Delete(id string) error {
	query := `UPDATE crawl_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete crawl run: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves runs newest first. Criteria: "deep_lookup" (bool), "limit" (int).
func (r *CrawlRunRepository) List(criteria map[string]any) ([]*models.CrawlRun, error) {
	query := `SELECT ` + crawlRunColumns + ` FROM crawl_runs WHERE deleted_at IS NULL`
	args := []any{}

	if deep, ok := criteria["deep_lookup"].(bool); ok {
		query += " AND deep_lookup = ?"
		args = append(args, deep)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CrawlRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// AddTracks records the ordered track ids of a run. Ids already recorded for the run are ignored.
func (r *CrawlRunRepository) AddTracks(runID string, trackIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var offset int
	if err := tx.QueryRow("SELECT COUNT(*) FROM run_tracks WHERE run_id = ?", runID).Scan(&offset); err != nil {
		return fmt.Errorf("failed to count run tracks: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO run_tracks (run_id, position, track_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range trackIDs {
		if _, err := stmt.Exec(runID, offset+i, id); err != nil {
			return fmt.Errorf("failed to add track %s to run %s: %w", id, runID, err)
		}
	}

	return tx.Commit()
}

// Tracks returns the track ids of a run in the order they were recorded.
func (r *CrawlRunRepository) Tracks(runID string) ([]string, error) {
	if _, err := r.Get(runID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query("SELECT track_id FROM run_tracks WHERE run_id = ? ORDER BY position ASC", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CrawlRunRepository) scan(row scanner) (*models.CrawlRun, error) {
	var (
		run       models.CrawlRun
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&run.RunID, &run.Sequence, &run.DeepLookup, &run.Categories, &run.SkippedCategories,
		&run.Playlists, &run.Albums, &run.TrackCount, &run.OutputFile, &run.StartedAt,
		&run.FinishedAt, &run.Created, &run.Updated, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan crawl run: %w", err)
	}

	if deletedAt.Valid {
		run.Deleted = &deletedAt.Time
	}
	return &run, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrRunNotFound, id)
	}
	return nil
}
