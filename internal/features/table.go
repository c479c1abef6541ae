package features

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
)

// LabelColumn is the name of the column appended by [Pipeline.Assign].
const LabelColumn = "cluster"

// ColumnKind is the value type of a [Column].
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Text
	Label
)

func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Label:
		return "label"
	default:
		return ""
	}
}

// Column is one typed column. Only the slice matching Kind is populated.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
	Ints    []int
}

// Format renders the cell at row i.
func (c *Column) Format(i int) string {
	switch c.Kind {
	case Numeric:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case Label:
		return strconv.Itoa(c.Ints[i])
	default:
		return c.Strings[i]
	}
}

// Table is a row-per-track collection of feature vectors.
type Table struct {
	ids     []string
	columns []*Column
}

// NewTable builds a table from vectors fetched for ids. Row i belongs to ids[i].
func NewTable(ids []string, vectors []*models.FeatureVector) (*Table, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d identifiers for %d feature vectors", shared.ErrInvalidInput, len(ids), len(vectors))
	}

	t := &Table{ids: append([]string(nil), ids...)}
	for _, name := range models.NumericFeatures {
		t.columns = append(t.columns, &Column{Name: name, Kind: Numeric, Floats: make([]float64, len(ids))})
	}
	for _, name := range models.TextFeatures {
		t.columns = append(t.columns, &Column{Name: name, Kind: Text, Strings: make([]string, len(ids))})
	}

	nNumeric := len(models.NumericFeatures)
	for i, fv := range vectors {
		if fv == nil {
			return nil, fmt.Errorf("%w: no feature vector for %s", shared.ErrInvalidInput, ids[i])
		}
		for j, v := range fv.Numeric() {
			t.columns[j].Floats[i] = v
		}
		for j, s := range fv.Text() {
			t.columns[nNumeric+j].Strings[i] = s
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns the row identifiers in load order.
func (t *Table) IDs() []string { return append([]string(nil), t.ids...) }

// Columns returns column names in table order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns the names of numeric columns. The label column is not numeric.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Row renders every cell of row i in column order.
func (t *Table) Row(i int) []string {
	cells := make([]string, len(t.columns))
	for j, c := range t.columns {
		cells[j] = c.Format(i)
	}
	return cells
}

// Vector rebuilds the feature vector of row i. It fails on a projected table.
func (t *Table) Vector(i int) (*models.FeatureVector, error) {
	if i < 0 || i >= t.Len() {
		return nil, fmt.Errorf("%w: row %d out of range", shared.ErrInvalidArgument, i)
	}

	numeric := make([]float64, len(models.NumericFeatures))
	for j, name := range models.NumericFeatures {
		c, ok := t.Column(name)
		if !ok || c.Kind != Numeric {
			return nil, fmt.Errorf("%w: missing column %q", shared.ErrInvalidInput, name)
		}
		numeric[j] = c.Floats[i]
	}
	text := make([]string, len(models.TextFeatures))
	for j, name := range models.TextFeatures {
		c, ok := t.Column(name)
		if !ok || c.Kind != Text {
			return nil, fmt.Errorf("%w: missing column %q", shared.ErrInvalidInput, name)
		}
		text[j] = c.Strings[i]
	}
	return models.FeatureVectorFrom(numeric, text)
}

// Matrix returns the row-major values of the named numeric columns.
func (t *Table) Matrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		c, ok := t.Column(name)
		if !ok || c.Kind != Numeric {
			return nil, fmt.Errorf("%w: %q is not a numeric column", shared.ErrInvalidArgument, name)
		}
		cols[j] = c
	}

	matrix := make([][]float64, t.Len())
	for i := range matrix {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Floats[i]
		}
		matrix[i] = row
	}
	return matrix, nil
}

// Project returns a table with only the named columns, in the given order.
// The label column is carried over when present.
func (t *Table) Project(names ...string) (*Table, error) {
	p := &Table{ids: t.IDs()}
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", shared.ErrInvalidArgument, name)
		}
		p.columns = append(p.columns, c)
	}
	if c, ok := t.Column(LabelColumn); ok && c.Kind == Label {
		p.columns = append(p.columns, c)
	}
	return p, nil
}

// Labels returns the cluster column, if one has been assigned.
func (t *Table) Labels() ([]int, bool) {
	c, ok := t.Column(LabelColumn)
	if !ok || c.Kind != Label {
		return nil, false
	}
	return c.Ints, true
}

// SetLabels appends the cluster column, replacing a previous one.
func (t *Table) SetLabels(labels []int) error {
	if len(labels) != t.Len() {
		return fmt.Errorf("%w: %d labels for %d rows", shared.ErrInvalidInput, len(labels), t.Len())
	}

	col := &Column{Name: LabelColumn, Kind: Label, Ints: append([]int(nil), labels...)}
	for i, c := range t.columns {
		if c.Name == LabelColumn {
			t.columns[i] = col
			return nil
		}
	}
	t.columns = append(t.columns, col)
	return nil
}

// Similar returns identifiers that share the cluster of trackID, in table order,
// without trackID itself. limit <= 0 returns all of them.
func (t *Table) Similar(trackID string, limit int) ([]string, error) {
	labels, ok := t.Labels()
	if !ok {
		return nil, shared.ErrNotFitted
	}

	row := -1
	for i, id := range t.ids {
		if id == trackID {
			row = i
			break
		}
	}
	if row < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}

	var similar []string
	for i, id := range t.ids {
		if labels[i] != labels[row] || id == trackID {
			continue
		}
		similar = append(similar, id)
	}
	similar = shared.Unique(similar)

	if limit > 0 && len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}
