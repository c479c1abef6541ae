// Package features turns fetched audio feature vectors into a [Table] and clusters its rows.
//
// # Table
//
// A [Table] holds one row per loaded track identifier, in load order, with typed columns:
// numeric feature columns, text columns, and after [Pipeline.Assign] an integer "cluster" column.
//
// # Clustering
//
// [Pipeline.Fit] selects the numeric columns, standard-scales them with a [StandardScaler]
// and fits [KMeans] on the scaled matrix. Initialization is k-means++ drawn from a PCG source
// seeded with the configured seed, so a fixed table and seed always yield the same labels.
// Lloyd iterations run on github.com/muesli/clusters.
//
// [Pipeline.Assign] predicts labels for the matrix retained from Fit, not for a fresh
// transform of the table. A fitted [Model] is never used to score other rows.
//
// # Files
//
// [LoadIdentifiers] reads the line-delimited identifier format. [SaveSnapshot] and [LoadSnapshot]
// write and read a gob snapshot of a table; the snapshot is internal to this tool.
package features
