package features

import (
	"fmt"
	"math"

	"github.com/desertthunder/cratedig/internal/shared"
)

// StandardScaler centers each column on its mean and divides by its population standard deviation.
// Columns with zero variance get a scale of 1.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-column mean and scale of x.
func FitScaler(x [][]float64) (*StandardScaler, error) {
	if len(x) == 0 {
		return nil, shared.ErrEmptyTable
	}
	width := len(x[0])
	if width == 0 {
		return nil, shared.ErrNoNumericColumns
	}

	s := &StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	n := float64(len(x))

	for _, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("%w: ragged matrix", shared.ErrInvalidInput)
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range x {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		std := math.Sqrt(s.Scale[j] / n)
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out
}
