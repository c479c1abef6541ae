package features

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cratedig/internal/shared"
	"github.com/muesli/clusters"
)

// Model is the fitted state of one [Pipeline.Fit] call.
type Model struct {
	Columns []string
	Scaler  *StandardScaler
	Centers clusters.Clusters
	Inertia float64

	scaled [][]float64
}

// predict labels every row of x with the index of its nearest center.
func (m *Model) predict(x [][]float64) []int {
	labels := make([]int, len(x))
	for i, row := range x {
		labels[i] = m.Centers.Nearest(clusters.Coordinates(row))
	}
	return labels
}

// Pipeline clusters the rows of a [Table].
type Pipeline struct {
	table  *Table
	opts   KMeans
	model  *Model
	logger *log.Logger
}

// NewPipeline prepares a pipeline over table. opts supplies NInit, MaxIter and Tol;
// K and Seed are given to [Pipeline.Fit].
func NewPipeline(table *Table, opts KMeans, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Pipeline{table: table, opts: opts, logger: logger}
}

// Table returns the table the pipeline operates on.
func (p *Pipeline) Table() *Table { return p.table }

// Model returns the fitted model, or nil before [Pipeline.Fit].
func (p *Pipeline) Model() *Model { return p.model }

// Fit standard-scales the numeric columns and fits k-means with k clusters from seed.
func (p *Pipeline) Fit(k int, seed uint64) error {
	if p.table == nil || p.table.Len() == 0 {
		return shared.ErrEmptyTable
	}

	columns := p.table.NumericColumns()
	if len(columns) == 0 {
		return shared.ErrNoNumericColumns
	}

	matrix, err := p.table.Matrix(columns)
	if err != nil {
		return err
	}

	scaler, err := FitScaler(matrix)
	if err != nil {
		return err
	}
	scaled := scaler.Transform(matrix)

	points := make([]clusters.Coordinates, len(scaled))
	for i, row := range scaled {
		points[i] = row
	}

	km := p.opts
	km.K, km.Seed = k, seed
	centers, inertia, err := km.Fit(points)
	if err != nil {
		return fmt.Errorf("failed to fit k-means: %w", err)
	}

	p.model = &Model{
		Columns: columns,
		Scaler:  scaler,
		Centers: centers,
		Inertia: inertia,
		scaled:  scaled,
	}
	p.logger.Debug("fitted cluster model", "rows", len(scaled), "columns", len(columns), "k", k, "seed", seed, "inertia", inertia)
	return nil
}

// Assign labels the rows used by Fit and appends the cluster column to the table.
func (p *Pipeline) Assign() error {
	if p.model == nil {
		return shared.ErrNotFitted
	}
	labels := p.model.predict(p.model.scaled)
	if err := p.table.SetLabels(labels); err != nil {
		return err
	}
	p.logger.Debug("assigned clusters", "rows", len(labels))
	return nil
}

// Sizes returns the number of rows per cluster label.
func Sizes(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		if l >= 0 && l < k {
			sizes[l]++
		}
	}
	return sizes
}
