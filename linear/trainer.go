package linear

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/metrics"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
)

// TrainingResult は1回の学習の結果。学習終了後は変更されない。
type TrainingResult struct {
	// FinalTrainLoss は最終エポックの訓練損失
	FinalTrainLoss float64 `json:"finalTrainLoss"`

	// FinalValLoss は最終エポックの検証損失
	FinalValLoss float64 `json:"finalValLoss"`

	// TrainLoss はエポックごとの訓練損失 (長さ = Epochs)
	TrainLoss []float64 `json:"trainLoss"`

	// ValLoss はエポックごとの検証損失 (長さ = Epochs)
	ValLoss []float64 `json:"valLoss"`

	// TrainSamples は勾配更新に使った行数
	TrainSamples int `json:"trainSamples"`

	// ValidationSamples は検証用に取り分けた行数
	ValidationSamples int `json:"validationSamples"`

	// Duration は学習にかかった時間
	Duration time.Duration `json:"duration"`
}

// Trainer は線形モデルをミニバッチSGDで学習する
//
// Trainer は1回の学習専用で、Uninitialized -> Training -> Trained (または
// Canceled) と遷移する。再学習には新しい Trainer を作る。
type Trainer struct {
	cfg      TrainConfig
	observer Observer
	logger   log.Logger
	state    *model.StateManager
	rng      *rand.Rand
}

// NewTrainer は新しいTrainerを作成する
//
// 使用例:
//
//	tr, err := linear.NewTrainer(
//	    linear.WithEpochs(20),
//	    linear.WithObserver(linear.ObserverFunc(func(s linear.EpochStats) { ... })),
//	)
//	m := tr.CreateModel()
//	res, err := tr.Train(ctx, m, trainX, trainY)
func NewTrainer(opts ...Option) (*Trainer, error) {
	t := &Trainer{
		cfg:    DefaultTrainConfig(),
		logger: log.GetLogger(),
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if t.logger == nil {
		t.logger = log.Nop()
	}
	t.logger = t.logger.With(log.ComponentKey, "linear.Trainer")
	t.rng = rand.New(rand.NewPCG(t.cfg.Seed, t.cfg.Seed^0x9e3779b97f4a7c15))
	return t, nil
}

// Config は学習設定を返す
func (t *Trainer) Config() TrainConfig {
	return t.cfg
}

// State は現在の状態を返す
func (t *Trainer) State() model.State {
	return t.state.State()
}

// CreateModel は設定された初期化方法で新しいモデルを作る
//
// 同じ Seed なら同じ初期値になる。
func (t *Trainer) CreateModel() *Model {
	m := &Model{}
	if t.cfg.Init == InitGlorot {
		limit := math.Sqrt(3)
		m.Weight = (t.rng.Float64()*2 - 1) * limit
	}
	return m
}

// Train はミニバッチSGDで平均二乗誤差を最小化する
//
// 訓練行の末尾 floor(n*ValidationSplit) 行を検証用として取り分け、勾配更新には
// 使わない。各エポックで残りの行をシャッフルし、BatchSize 行ごとに
// weight -= lr*dW, bias -= lr*dB を行う。ctx はバッチの間で確認され、
// キャンセルされた場合はそのバッチを更新せずに ctx.Err() を返す。
//
// パラメータ:
//   - ctx: キャンセル用のコンテキスト
//   - m: 更新するモデル (CreateModel で作ったもの)
//   - x: 正規化された訓練特徴量
//   - y: 正規化された訓練ラベル
//
// 戻り値:
//   - *TrainingResult: エポックごとの損失履歴
//   - error: 入力不正、数値不安定、キャンセルの場合のエラー
func (t *Trainer) Train(ctx context.Context, m *Model, x, y []float64) (*TrainingResult, error) {
	if m == nil {
		return nil, errors.NewValidationError("model", "must not be nil", nil)
	}
	if len(x) != len(y) {
		return nil, errors.NewDimensionError("Trainer.Train", len(x), len(y), 0)
	}

	n := len(x)
	nVal := int(math.Floor(float64(n) * t.cfg.ValidationSplit))
	nTrain := n - nVal
	if nTrain == 0 {
		return nil, errors.NewDataUnavailableError("Trainer.Train", "no training rows")
	}
	if err := t.state.Begin(n); err != nil {
		return nil, err
	}

	trainX, trainY := x[:nTrain], y[:nTrain]
	valX, valY := x[nTrain:], y[nTrain:]

	logger := t.logger.With(
		log.TrainSamplesKey, nTrain,
		log.ValidationSamplesKey, nVal,
	)
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.BatchSizeKey, t.cfg.BatchSize,
		log.EpochsKey, t.cfg.Epochs,
		log.LearningRateKey, t.cfg.LearningRate,
		log.ValidationSplitKey, t.cfg.ValidationSplit,
		log.RandomSeedKey, t.cfg.Seed,
	)

	start := time.Now()
	res := &TrainingResult{
		TrainLoss:         make([]float64, 0, t.cfg.Epochs),
		ValLoss:           make([]float64, 0, t.cfg.Epochs),
		TrainSamples:      nTrain,
		ValidationSamples: nVal,
	}

	idx := make([]int, nTrain)
	for i := range idx {
		idx[i] = i
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		t.rng.Shuffle(nTrain, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		var lossSum float64
		for s := 0; s < nTrain; s += t.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				t.state.Finish(false)
				logger.Warn("Training canceled", log.EpochKey, epoch)
				return nil, errors.Wrapf(err, "training canceled at epoch %d", epoch)
			}
			e := s + t.cfg.BatchSize
			if e > nTrain {
				e = nTrain
			}
			lossSum += t.step(m, trainX, trainY, idx[s:e])
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: lossSum / float64(nTrain)}
		if nVal > 0 {
			val, err := Evaluate(*m, valX, valY)
			if err != nil {
				t.state.Finish(false)
				return nil, err
			}
			stats.ValLoss, stats.Validated = val, true
		}
		if err := errors.CheckScalar("Trainer.Train", stats.TrainLoss, epoch); err != nil {
			t.state.Finish(false)
			logger.Error("Training diverged", err, log.EpochKey, epoch)
			return nil, err
		}

		res.TrainLoss = append(res.TrainLoss, stats.TrainLoss)
		res.ValLoss = append(res.ValLoss, stats.ValLoss)

		logger.Debug("Epoch finished",
			log.EpochKey, epoch,
			log.LossKey, stats.TrainLoss,
			log.ValLossKey, stats.ValLoss,
		)
		if t.observer != nil {
			t.observer.OnEpochEnd(stats)
		}
	}

	res.FinalTrainLoss = res.TrainLoss[len(res.TrainLoss)-1]
	res.FinalValLoss = res.ValLoss[len(res.ValLoss)-1]
	res.Duration = time.Since(start)

	if len(res.TrainLoss) > 1 && res.FinalTrainLoss >= res.TrainLoss[0] {
		errors.Warn(errors.NewConvergenceWarning("linear.Trainer", t.cfg.Epochs,
			"training loss did not decrease; consider a smaller learning rate or more epochs"))
	}

	t.state.Finish(true)
	logger.Info("Training finished",
		log.LossKey, res.FinalTrainLoss,
		log.ValLossKey, res.FinalValLoss,
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res, nil
}

// step は1バッチ分の更新を行い、更新前のパラメータでのバッチ損失と行数の積を返す
func (t *Trainer) step(m *Model, x, y []float64, batch []int) float64 {
	var sq, gw, gb float64
	for _, i := range batch {
		diff := m.Weight*x[i] + m.Bias - y[i]
		sq += diff * diff
		gw += diff * x[i]
		gb += diff
	}
	k := 2 / float64(len(batch))
	m.Weight -= t.cfg.LearningRate * k * gw
	m.Bias -= t.cfg.LearningRate * k * gb
	return sq
}

// Evaluate はモデルを変更せずに平均二乗誤差を計算する
func Evaluate(m Model, x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.NewDimensionError("linear.Evaluate", len(x), len(y), 0)
	}
	return metrics.MSE(metrics.Vec(y), metrics.Vec(m.PredictColumn(x)))
}
