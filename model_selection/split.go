// Package model_selection は行の並べ替えと訓練/テスト分割を提供する
package model_selection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// NewRand は seed から再現可能な乱数生成器を作る
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Prepare は特徴量列とラベル列を学習用に整える
//
// 長さが奇数なら末尾の1行を捨て、rng から1つだけ引いた行の置換を両方の列に
// 適用する。戻り値は新しいスライスで、入力は変更されない。
//
// パラメータ:
//   - features: 特徴量列
//   - labels: ラベル列 (features と同じ長さ)
//   - rng: 置換を生成する乱数生成器。同じ seed なら同じ結果になる
//
// 戻り値:
//   - []float64, []float64: 並べ替え後の特徴量列とラベル列
//   - error: 長さが一致しない場合の DimensionError
func Prepare(features, labels []float64, rng *rand.Rand) ([]float64, []float64, error) {
	if len(features) != len(labels) {
		return nil, nil, errors.NewDimensionError("model_selection.Prepare", len(features), len(labels), 0)
	}

	n := len(features) &^ 1
	perm := rng.Perm(n)

	x := make([]float64, n)
	y := make([]float64, n)
	for i, src := range perm {
		x[i] = features[src]
		y[i] = labels[src]
	}
	return x, y, nil
}

// PrepareColumn は1列だけを Prepare と同じ規則で整える
func PrepareColumn(column []float64, rng *rand.Rand) []float64 {
	n := len(column) &^ 1
	out := make([]float64, n)
	for i, src := range rng.Perm(n) {
		out[i] = column[src]
	}
	return out
}

// Split は列をちょうど半分に分け、前半を訓練用、後半をテスト用として返す
//
// 奇数長の列は Prepare を通していない呼び出しの誤りとして扱う。
func Split(column []float64) (train, test []float64, err error) {
	if len(column)%2 != 0 {
		return nil, nil, errors.NewValidationError("column", "length must be even before splitting", len(column))
	}
	half := len(column) / 2
	return column[:half:half], column[half:], nil
}

// Dataset は訓練用とテスト用に分けた特徴量・ラベル列
type Dataset struct {
	TrainX, TrainY []float64
	TestX, TestY   []float64
}

// TrainTestSplit は整えた後の2列を同じ位置で半分に分ける
//
// 使用例:
//
//	x, y, _ := model_selection.Prepare(sqft, price, model_selection.NewRand(42))
//	ds, err := model_selection.TrainTestSplit(x, y)
func TrainTestSplit(features, labels []float64) (*Dataset, error) {
	if len(features) != len(labels) {
		return nil, errors.NewDimensionError("model_selection.TrainTestSplit", len(features), len(labels), 0)
	}
	trainX, testX, err := Split(features)
	if err != nil {
		return nil, err
	}
	trainY, testY, err := Split(labels)
	if err != nil {
		return nil, err
	}
	return &Dataset{TrainX: trainX, TrainY: trainY, TestX: testX, TestY: testY}, nil
}
