// Package tasks runs the catalog crawl and the feature fetch with real-time progress reporting.
//
// # Core Operations
//
//  1. [Crawler.Run] : catalog crawl
//     - Lists categories, then the playlists of each category
//     - Pages through every playlist, keeping entries with a track id
//     - Deduplicates track ids in first-seen order
//     - With DeepLookup, resolves each track's album and collects every album track
//     - With Persist, writes the result as a line-delimited identifier file
//
//  2. [FeatureFetcher.FetchTable] : one audio feature lookup per identifier, in load order,
//     assembled into a [features.Table]
//
// A category whose playlists cannot be listed ([shared.ErrCategoryUnavailable]) is skipped and
// counted. Any other catalog error aborts the operation and is returned wrapped.
//
// # Concurrency
//
// Workers > 1 fans independent lookups out through an errgroup bounded to that many goroutines.
// Results are gathered by index, so the output matches a single-worker run exactly.
// RequestsPerSecond > 0 paces every catalog call through a shared token bucket.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, and a message.
// Updates use select with default to prevent blocking, and ShowProgress=false suppresses them.
//
// A [Crawler] keeps no state between runs; every run builds its own session.
package tasks
