package metrics

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			yPred:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.25,
			tolerance: 1e-10,
		},
		{
			name:      "larger errors",
			yTrue:     mat.NewVecDense(3, []float64{10.0, 20.0, 30.0}),
			yPred:     mat.NewVecDense(3, []float64{12.0, 18.0, 33.0}),
			want:      17.0 / 3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:   mat.NewVecDense(2, []float64{1.0, 2.0}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := Vec([]float64{3, -0.5, 2, 7})
	yPred := Vec([]float64{2.5, 0.0, 2, 8})

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.375), rmse, 1e-12)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)

	_, err = MAE(Vec(nil), Vec(nil))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestR2Score(t *testing.T) {
	// sklearn.metrics.r2_score([3, -0.5, 2, 7], [2.5, 0.0, 2, 8]) = 0.9486081370449679
	got, err := R2Score(Vec([]float64{3, -0.5, 2, 7}), Vec([]float64{2.5, 0.0, 2, 8}))
	require.NoError(t, err)
	assert.InDelta(t, 0.9486081370449679, got, 1e-12)

	perfect, err := R2Score(Vec([]float64{1, 2, 3}), Vec([]float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, perfect)
}

func TestR2ScoreConstantTargetWarns(t *testing.T) {
	var (
		mu       sync.Mutex
		warnings []error
	)
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	got, err := R2Score(Vec([]float64{2, 2, 2}), Vec([]float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, warnings, 1)
	var umw *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &umw))
}
