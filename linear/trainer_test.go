package linear

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/model_selection"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
	"github.com/YuminosukeSato/pricefit/preprocessing"
)

type linearData struct {
	ds      *model_selection.Dataset
	feature preprocessing.ScalingParams
	label   preprocessing.ScalingParams
}

// y = 2x + 3, x in 1..100
func newLinearData(t *testing.T, seed uint64) linearData {
	t.Helper()
	x := make([]float64, 100)
	y := make([]float64, 100)
	for i := range x {
		x[i] = float64(i + 1)
		y[i] = 2*x[i] + 3
	}
	px, py, err := model_selection.Prepare(x, y, model_selection.NewRand(seed))
	require.NoError(t, err)

	scaler := preprocessing.NewMinMaxScaler()
	nx, ny, err := scaler.FitTransform(px, py)
	require.NoError(t, err)

	ds, err := model_selection.TrainTestSplit(nx, ny)
	require.NoError(t, err)
	return linearData{ds: ds, feature: scaler.Feature, label: scaler.Label}
}

func TestTrainDefaultConfigLossDecreases(t *testing.T) {
	data := newLinearData(t, 1)

	tr, err := NewTrainer(WithLogger(log.Nop()))
	require.NoError(t, err)
	m := tr.CreateModel()

	res, err := tr.Train(context.Background(), m, data.ds.TrainX, data.ds.TrainY)
	require.NoError(t, err)

	require.Len(t, res.TrainLoss, 20)
	require.Len(t, res.ValLoss, 20)
	assert.Less(t, res.TrainLoss[19], res.TrainLoss[0])
	assert.Equal(t, res.TrainLoss[19], res.FinalTrainLoss)
	assert.Equal(t, res.ValLoss[19], res.FinalValLoss)
	assert.Equal(t, 40, res.TrainSamples)
	assert.Equal(t, 10, res.ValidationSamples)
	assert.Equal(t, model.StateTrained, tr.State())
}

// Parameter recovery uses a longer schedule than the defaults; 20 epochs of
// 2 batches is not enough steps to pin the intercept within 10%.
func TestTrainRecoversLineWithinTenPercent(t *testing.T) {
	for _, init := range []InitPolicy{InitGlorot, InitZeros} {
		t.Run(string(init), func(t *testing.T) {
			data := newLinearData(t, 3)
			tr, err := NewTrainer(
				WithLogger(log.Nop()),
				WithEpochs(300),
				WithBatchSize(8),
				WithLearningRate(0.3),
				WithInit(init),
			)
			require.NoError(t, err)
			m := tr.CreateModel()
			_, err = tr.Train(context.Background(), m, data.ds.TrainX, data.ds.TrainY)
			require.NoError(t, err)

			slope, intercept := m.RawCoefficients(data.feature, data.label)
			assert.InEpsilon(t, 2.0, slope, 0.10)
			assert.InEpsilon(t, 3.0, intercept, 0.10)

			testLoss, err := Evaluate(*m, data.ds.TestX, data.ds.TestY)
			require.NoError(t, err)
			assert.Less(t, testLoss, 1e-4)
		})
	}
}

func TestTrainDeterministicUnderSeed(t *testing.T) {
	data := newLinearData(t, 5)
	run := func(seed uint64) (Model, *TrainingResult) {
		tr, err := NewTrainer(WithLogger(log.Nop()), WithSeed(seed))
		require.NoError(t, err)
		m := tr.CreateModel()
		res, err := tr.Train(context.Background(), m, data.ds.TrainX, data.ds.TrainY)
		require.NoError(t, err)
		return *m, res
	}

	m1, r1 := run(9)
	m2, r2 := run(9)
	m3, _ := run(10)
	assert.Equal(t, m1, m2)
	assert.Equal(t, r1.TrainLoss, r2.TrainLoss)
	assert.NotEqual(t, m1, m3)
}

func TestCreateModel(t *testing.T) {
	tr, err := NewTrainer(WithInit(InitZeros))
	require.NoError(t, err)
	assert.Equal(t, &Model{}, tr.CreateModel())

	tr, err = NewTrainer(WithSeed(1))
	require.NoError(t, err)
	m := tr.CreateModel()
	assert.LessOrEqual(t, math.Abs(m.Weight), math.Sqrt(3))
	assert.Equal(t, 0.0, m.Bias)
}

func TestObserverCalledOncePerEpochInOrder(t *testing.T) {
	data := newLinearData(t, 2)

	var got []EpochStats
	tr, err := NewTrainer(
		WithLogger(log.Nop()),
		WithEpochs(7),
		WithObserver(ObserverFunc(func(s EpochStats) { got = append(got, s) })),
	)
	require.NoError(t, err)
	res, err := tr.Train(context.Background(), tr.CreateModel(), data.ds.TrainX, data.ds.TrainY)
	require.NoError(t, err)

	require.Len(t, got, 7)
	for i, s := range got {
		assert.Equal(t, i+1, s.Epoch)
		assert.Equal(t, res.TrainLoss[i], s.TrainLoss)
		assert.Equal(t, res.ValLoss[i], s.ValLoss)
		assert.True(t, s.Validated)
	}
}

func TestMultiObserver(t *testing.T) {
	var a, b int
	obs := MultiObserver{
		ObserverFunc(func(EpochStats) { a++ }),
		nil,
		ObserverFunc(func(EpochStats) { b++ }),
	}
	obs.OnEpochEnd(EpochStats{Epoch: 1})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestValidationRowsNeverTrained(t *testing.T) {
	// Validation rows carry labels far off the line; training must ignore them.
	x := []float64{0, 0.25, 0.5, 0.75, 1, 0.1, 0.9, 0.3, 0.6, 0.2}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = x[i]
	}
	y[8], y[9] = 100, -100

	tr, err := NewTrainer(
		WithLogger(log.Nop()),
		WithInit(InitZeros),
		WithEpochs(500),
		WithBatchSize(4),
		WithLearningRate(0.5),
	)
	require.NoError(t, err)
	m := tr.CreateModel()
	res, err := tr.Train(context.Background(), m, x, y)
	require.NoError(t, err)

	assert.Equal(t, 8, res.TrainSamples)
	assert.InDelta(t, 1.0, m.Weight, 1e-3)
	assert.InDelta(t, 0.0, m.Bias, 1e-3)
	assert.Greater(t, res.FinalValLoss, 1000.0)
}

func TestTrainCanceled(t *testing.T) {
	data := newLinearData(t, 4)
	ctx, cancel := context.WithCancel(context.Background())

	tr, err := NewTrainer(
		WithLogger(log.Nop()),
		WithObserver(ObserverFunc(func(s EpochStats) {
			if s.Epoch == 3 {
				cancel()
			}
		})),
	)
	require.NoError(t, err)
	m := tr.CreateModel()
	res, err := tr.Train(ctx, m, data.ds.TrainX, data.ds.TrainY)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.StateCanceled, tr.State())
}

func TestTrainerIsSingleUse(t *testing.T) {
	data := newLinearData(t, 6)
	tr, err := NewTrainer(WithLogger(log.Nop()), WithEpochs(1))
	require.NoError(t, err)
	_, err = tr.Train(context.Background(), tr.CreateModel(), data.ds.TrainX, data.ds.TrainY)
	require.NoError(t, err)
	_, err = tr.Train(context.Background(), tr.CreateModel(), data.ds.TrainX, data.ds.TrainY)
	assert.Error(t, err)
}

func TestTrainInputErrors(t *testing.T) {
	tr, err := NewTrainer(WithLogger(log.Nop()))
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), tr.CreateModel(), []float64{1, 2}, []float64{1})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = tr.Train(context.Background(), tr.CreateModel(), nil, nil)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.Equal(t, model.StateUninitialized, tr.State())
}

func TestTrainDivergenceReported(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	tr, err := NewTrainer(
		WithLogger(log.Nop()),
		WithLearningRate(1e6),
		WithEpochs(200),
		WithBatchSize(2),
		WithValidationSplit(0),
	)
	require.NoError(t, err)
	_, err = tr.Train(context.Background(), tr.CreateModel(), x, x)
	var nie *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &nie))
	assert.Equal(t, model.StateCanceled, tr.State())
}

func TestTrainConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"batch size", WithBatchSize(0)},
		{"epochs", WithEpochs(-1)},
		{"validation split", WithValidationSplit(1)},
		{"learning rate", WithLearningRate(0)},
		{"init", WithInit("he")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrainer(tt.opt)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
	assert.NoError(t, DefaultTrainConfig().Validate())
}

func TestTrainLogsProgress(t *testing.T) {
	data := newLinearData(t, 8)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	tr, err := NewTrainer(WithLogger(logger), WithEpochs(2))
	require.NoError(t, err)
	_, err = tr.Train(context.Background(), tr.CreateModel(), data.ds.TrainX, data.ds.TrainY)
	require.NoError(t, err)

	assert.Equal(t, 1, logger.CountMessage("Training started"))
	assert.Equal(t, 2, logger.CountMessage("Epoch finished"))
	assert.Equal(t, 1, logger.CountMessage("Training finished"))
	assert.Equal(t, []any{1.0, 2.0}, logger.FieldValues(log.EpochKey))
}

func TestEvaluateDoesNotModifyModel(t *testing.T) {
	m := Model{Weight: 2, Bias: 1}
	loss, err := Evaluate(m, []float64{0, 1}, []float64{1, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loss, 1e-12)
	assert.Equal(t, Model{Weight: 2, Bias: 1}, m)
}

func TestRawCoefficients(t *testing.T) {
	feature := preprocessing.ScalingParams{Min: 1, Max: 100}
	label := preprocessing.ScalingParams{Min: 5, Max: 203}
	slope, intercept := Model{Weight: 1, Bias: 0}.RawCoefficients(feature, label)
	assert.InDelta(t, 2.0, slope, 1e-12)
	assert.InDelta(t, 3.0, intercept, 1e-12)
}
