package linear

import (
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
)

// InitPolicy はモデルパラメータの初期化方法
type InitPolicy string

const (
	// InitGlorot は Weight を U(-sqrt(3), sqrt(3)) から引き、Bias を 0 にする。
	// 1x1 のカーネルに対する Glorot uniform と同じ範囲。
	InitGlorot InitPolicy = "glorot"
	// InitZeros は Weight と Bias を 0 にする
	InitZeros InitPolicy = "zeros"
)

// TrainConfig はミニバッチSGDの設定
type TrainConfig struct {
	// BatchSize は1回の更新に使う行数
	BatchSize int `yaml:"batch_size" json:"batchSize"`

	// Epochs は訓練データ全体を回る回数
	Epochs int `yaml:"epochs" json:"epochs"`

	// ValidationSplit は訓練行のうち検証用に取り分ける割合 [0, 1)
	ValidationSplit float64 `yaml:"validation_split" json:"validationSplit"`

	// LearningRate はSGDの学習率
	LearningRate float64 `yaml:"learning_rate" json:"learningRate"`

	// Seed は初期化とエポックごとのシャッフルに使う乱数の種
	Seed uint64 `yaml:"seed" json:"seed"`

	// Init はパラメータの初期化方法
	Init InitPolicy `yaml:"init" json:"init"`
}

// DefaultTrainConfig はデフォルト設定を返す
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		BatchSize:       32,
		Epochs:          20,
		ValidationSplit: 0.2,
		LearningRate:    0.1,
		Seed:            42,
		Init:            InitGlorot,
	}
}

// Validate は設定値の妥当性を検証する
func (c TrainConfig) Validate() error {
	if c.BatchSize <= 0 {
		return errors.NewValidationError("batch_size", "must be positive", c.BatchSize)
	}
	if c.Epochs <= 0 {
		return errors.NewValidationError("epochs", "must be positive", c.Epochs)
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 || !errors.IsFinite(c.ValidationSplit) {
		return errors.NewValidationError("validation_split", "must be in [0, 1)", c.ValidationSplit)
	}
	if !(c.LearningRate > 0) || !errors.IsFinite(c.LearningRate) {
		return errors.NewValidationError("learning_rate", "must be a positive finite number", c.LearningRate)
	}
	switch c.Init {
	case InitGlorot, InitZeros:
	default:
		return errors.NewValidationError("init", "must be \"glorot\" or \"zeros\"", string(c.Init))
	}
	return nil
}

// Option is a function that configures a Trainer
type Option func(*Trainer)

// WithConfig replaces the whole training configuration
func WithConfig(cfg TrainConfig) Option {
	return func(t *Trainer) {
		t.cfg = cfg
	}
}

// WithBatchSize sets the number of rows per gradient update
func WithBatchSize(n int) Option {
	return func(t *Trainer) {
		t.cfg.BatchSize = n
	}
}

// WithEpochs sets the number of passes over the training rows
func WithEpochs(n int) Option {
	return func(t *Trainer) {
		t.cfg.Epochs = n
	}
}

// WithValidationSplit sets the fraction of training rows held out for validation loss
func WithValidationSplit(f float64) Option {
	return func(t *Trainer) {
		t.cfg.ValidationSplit = f
	}
}

// WithLearningRate sets the SGD step size
func WithLearningRate(lr float64) Option {
	return func(t *Trainer) {
		t.cfg.LearningRate = lr
	}
}

// WithSeed sets the random seed for initialization and shuffling
func WithSeed(seed uint64) Option {
	return func(t *Trainer) {
		t.cfg.Seed = seed
	}
}

// WithInit sets the parameter initialization policy
func WithInit(p InitPolicy) Option {
	return func(t *Trainer) {
		t.cfg.Init = p
	}
}

// WithObserver attaches a per-epoch progress observer
func WithObserver(o Observer) Option {
	return func(t *Trainer) {
		t.observer = o
	}
}

// WithLogger sets the logger used for training progress
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) {
		t.logger = l
	}
}
