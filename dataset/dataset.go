// Package dataset reads (sqft_living, price) points from a CSV file, an HTTP
// endpoint or memory, and turns them into feature and label columns.
package dataset

import (
	"context"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// Point is one observation: X is the feature, Y the label.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Source yields an ordered sequence of already-parsed points.
type Source interface {
	Points(ctx context.Context) ([]Point, error)
}

// StaticSource serves a fixed slice of points.
type StaticSource []Point

// Points implements Source. The returned slice is a copy.
func (s StaticSource) Points(ctx context.Context) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Point, len(s))
	copy(out, s)
	return out, nil
}

// Columns splits points into a feature column and a label column.
// An empty input is a DataUnavailableError: there is nothing to train on.
func Columns(points []Point) (features, labels []float64, err error) {
	if len(points) == 0 {
		return nil, nil, errors.NewDataUnavailableError("dataset.Columns", "no points")
	}
	features = make([]float64, len(points))
	labels = make([]float64, len(points))
	for i, p := range points {
		if !errors.IsFinite(p.X) || !errors.IsFinite(p.Y) {
			return nil, nil, errors.NewValidationError("point", "x and y must be finite", i)
		}
		features[i] = p.X
		labels[i] = p.Y
	}
	return features, labels, nil
}
