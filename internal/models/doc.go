// Package models defines the catalog entities shared by the crawler, the feature pipeline and the store.
//
// The package contains two categories of types:
//
// 1. Catalog values: lightweight structs handed out by a catalog service
//   - [URI] : resource reference of the form "spotify:<kind>:<id>"
//   - [Category] : browse category with an id and display name
//   - [TrackPage] : one page of playlist entries plus the cursor for the next
//   - [FeatureVector] : the fixed audio feature schema of one track
//
// 2. Persistent Entities: database-backed records
//   - [CrawlRun] : one crawl, its counts and output file
//
// Persistent entities implement the [Model] interface providing ID, timestamps, and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
