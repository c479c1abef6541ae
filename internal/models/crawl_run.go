package models

import (
	"fmt"
	"time"
)

// CrawlRun is the persisted summary of one crawl.
type CrawlRun struct {
	RunID             string
	Sequence          int
	DeepLookup        bool
	Categories        int
	SkippedCategories int
	Playlists         int
	Albums            int
	TrackCount        int
	OutputFile        string
	StartedAt         time.Time
	FinishedAt        time.Time
	Created           time.Time
	Updated           time.Time
	Deleted           *time.Time
}

func (r *CrawlRun) ID() string           { return r.RunID }
func (r *CrawlRun) CreatedAt() time.Time { return r.Created }
func (r *CrawlRun) UpdatedAt() time.Time { return r.Updated }

func (r *CrawlRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("crawl run id is required")
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("crawl run %s finished before it started", r.RunID)
	}
	return nil
}

// Duration returns the wall time of the run.
func (r *CrawlRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
