package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/dataset"
	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

func TestLossChart(t *testing.T) {
	history := []linear.EpochStats{
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6, Validated: true},
		{Epoch: 2, TrainLoss: 0.2, ValLoss: 0.3, Validated: true},
		{Epoch: 3, TrainLoss: 0.1, ValLoss: 0.15, Validated: true},
	}
	var buf bytes.Buffer
	require.NoError(t, LossChart(&buf, history))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestLossChartEmpty(t *testing.T) {
	err := LossChart(&bytes.Buffer{}, nil)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestScatterChart(t *testing.T) {
	points := []dataset.Point{{X: 1180, Y: 221900}, {X: 2570, Y: 538000}, {X: 770, Y: 180000}}
	for _, fitted := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, ScatterChart(&buf, points, fitted, 280, -43000))
		_, err := png.Decode(&buf)
		require.NoError(t, err)
	}

	err := ScatterChart(&bytes.Buffer{}, nil, false, 0, 0)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}
