package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

func seq(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestPrepareTruncatesOdd(t *testing.T) {
	x := seq(7, func(i int) float64 { return float64(i) })
	y := seq(7, func(i int) float64 { return float64(i * 10) })

	px, py, err := Prepare(x, y, NewRand(1))
	require.NoError(t, err)
	assert.Len(t, px, 6)
	assert.Len(t, py, 6)
	assert.NotContains(t, px, 6.0, "last row is dropped before shuffling")
}

func TestPrepareLengthMismatch(t *testing.T) {
	_, _, err := Prepare([]float64{1, 2}, []float64{1}, NewRand(1))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestPrepareDeterministic(t *testing.T) {
	x := seq(100, func(i int) float64 { return float64(i) })
	y := seq(100, func(i int) float64 { return float64(i) })

	a, _, err := Prepare(x, y, NewRand(42))
	require.NoError(t, err)
	b, _, err := Prepare(x, y, NewRand(42))
	require.NoError(t, err)
	c, _, err := Prepare(x, y, NewRand(43))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, PrepareColumn(x, NewRand(42)), a)
}

func TestSplitHalves(t *testing.T) {
	for _, n := range []int{0, 2, 10, 101} {
		col := seq(n, func(i int) float64 { return float64(i) * 1.5 })
		prepared := PrepareColumn(col, NewRand(uint64(n)))

		train, test, err := Split(prepared)
		require.NoError(t, err)
		assert.Len(t, train, len(prepared)/2)
		assert.Len(t, test, len(prepared)/2)

		union := append(append([]float64{}, train...), test...)
		sort.Float64s(union)
		want := append([]float64{}, prepared...)
		sort.Float64s(want)
		assert.Equal(t, want, union)
	}
}

func TestSplitOddLength(t *testing.T) {
	_, _, err := Split([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestSplitTrainDoesNotAliasTest(t *testing.T) {
	train, test, err := Split([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	train = append(train, 99)
	assert.Equal(t, []float64{3, 4}, test)
	assert.Len(t, train, 3)
}

func TestTrainTestSplitKeepsRowCorrespondence(t *testing.T) {
	const n = 200
	x := seq(n, func(i int) float64 { return float64(i) })
	y := seq(n, func(i int) float64 { return 2*float64(i) + 3 })

	px, py, err := Prepare(x, y, NewRand(7))
	require.NoError(t, err)
	ds, err := TrainTestSplit(px, py)
	require.NoError(t, err)

	require.Len(t, ds.TrainX, n/2)
	require.Len(t, ds.TestX, n/2)

	seen := map[float64]bool{}
	for i := range ds.TrainX {
		assert.Equal(t, 2*ds.TrainX[i]+3, ds.TrainY[i])
		seen[ds.TrainX[i]] = true
	}
	for i := range ds.TestX {
		assert.Equal(t, 2*ds.TestX[i]+3, ds.TestY[i])
		assert.False(t, seen[ds.TestX[i]], "train and test overlap")
		seen[ds.TestX[i]] = true
	}
	assert.Len(t, seen, n)
}
