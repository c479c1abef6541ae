// Package repositories implements SQLite persistence for crawl runs and their feature tables.
//
// Key Implementations:
//   - [CrawlRunRepository] : crawl run summaries and the ordered track ids each run produced
//   - [FeatureRepository] : per-run feature rows and cluster assignments
//
// Crawl runs carry a sequence number for stable, human-readable ordering independent of UUIDs.
// The [NextSequence] function atomically increments per-table counters in dedicated sequence tables.
// Deleting a run is a soft delete via deleted_at; deleted runs are excluded from queries.
package repositories
