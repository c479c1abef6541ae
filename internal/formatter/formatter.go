// package formatter renders identifier lists, feature tables and crawl runs to files (plain text, CSV, Markdown, JSON)
package formatter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/cratedig/internal/features"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
)

// WriteIdentifiers writes one identifier per line, each followed by a newline.
func WriteIdentifiers(w io.Writer, ids []string) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := bw.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("failed to write identifier: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write identifiers: %w", err)
	}
	return nil
}

// WriteIdentifiersFile writes ids to path, creating parent directories as needed.
func WriteIdentifiersFile(path string, ids []string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create identifier file: %w", err)
	}
	if err := WriteIdentifiers(f, ids); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close identifier file: %w", err)
	}
	return path, nil
}

// ExportToCSV converts a feature table to CSV with a header row of column names
func ExportToCSV(table *features.Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(table.Columns()); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i := 0; i < table.Len(); i++ {
		if err := writer.Write(table.Row(i)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportClusterSummary renders a Markdown table with the size of each cluster and
// the mean of every numeric column within it.
func ExportClusterSummary(table *features.Table) ([]byte, error) {
	labels, ok := table.Labels()
	if !ok {
		return nil, shared.ErrNotFitted
	}

	k := 0
	for _, l := range labels {
		k = max(k, l+1)
	}
	sizes := features.Sizes(labels, k)
	columns := table.NumericColumns()

	var buf bytes.Buffer
	buf.WriteString("# Cluster Summary\n\n")
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", table.Len()))
	buf.WriteString(fmt.Sprintf("**Clusters**: %d\n\n", k))

	buf.WriteString("| cluster | tracks |")
	for _, name := range columns {
		buf.WriteString(" " + name + " |")
	}
	buf.WriteString("\n|---|---|")
	for range columns {
		buf.WriteString("---|")
	}
	buf.WriteString("\n")

	means := make([][]float64, k)
	for c := range means {
		means[c] = make([]float64, len(columns))
	}
	for j, name := range columns {
		col, _ := table.Column(name)
		for i, l := range labels {
			means[l][j] += col.Floats[i]
		}
	}

	for c := 0; c < k; c++ {
		buf.WriteString(fmt.Sprintf("| %d | %d |", c, sizes[c]))
		for j := range columns {
			mean := 0.0
			if sizes[c] > 0 {
				mean = means[c][j] / float64(sizes[c])
			}
			buf.WriteString(" " + strconv.FormatFloat(mean, 'f', 3, 64) + " |")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ToRunJSON generates an indented JSON representation of a crawl run
func ToRunJSON(run *models.CrawlRun) ([]byte, error) {
	return shared.MarshalJSON(runJSON{
		ID:                run.RunID,
		Sequence:          run.Sequence,
		DeepLookup:        run.DeepLookup,
		Categories:        run.Categories,
		SkippedCategories: run.SkippedCategories,
		Playlists:         run.Playlists,
		Albums:            run.Albums,
		Tracks:            run.TrackCount,
		OutputFile:        run.OutputFile,
		StartedAt:         run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		FinishedAt:        run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:          run.Duration().String(),
	}, true)
}

type runJSON struct {
	ID                string `json:"id"`
	Sequence          int    `json:"sequence"`
	DeepLookup        bool   `json:"deep_lookup"`
	Categories        int    `json:"categories"`
	SkippedCategories int    `json:"skipped_categories"`
	Playlists         int    `json:"playlists"`
	Albums            int    `json:"albums"`
	Tracks            int    `json:"tracks"`
	OutputFile        string `json:"output_file,omitempty"`
	StartedAt         string `json:"started_at"`
	FinishedAt        string `json:"finished_at"`
	Duration          string `json:"duration"`
}

// WriteCSVExport writes the feature table as CSV.
//
// Defaults to features.csv as the filename.
func WriteCSVExport(table *features.Table, path string) (string, error) {
	if path == "" {
		path = "features.csv"
	}

	data, err := ExportToCSV(table)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// WriteSummaryExport writes the cluster summary as Markdown.
//
// Defaults to clusters.md as the filename.
func WriteSummaryExport(table *features.Table, path string) (string, error) {
	if path == "" {
		path = "clusters.md"
	}

	data, err := ExportClusterSummary(table)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return path, nil
}
