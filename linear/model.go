// Package linear は1入力1出力の線形モデルとそのミニバッチSGD学習を提供する
//
// モデルは正規化空間で y = Weight*x + Bias を表す。元の単位での予測には
// 特徴量・ラベル列の ScalingParams が必要になる。
package linear

import (
	"fmt"

	"github.com/YuminosukeSato/pricefit/preprocessing"
)

// Model は正規化空間での線形モデルのパラメータ
type Model struct {
	Weight float64 `json:"weight"`
	Bias   float64 `json:"bias"`
}

// Predict は正規化された入力1つに対する予測値を返す
func (m Model) Predict(x float64) float64 {
	return m.Weight*x + m.Bias
}

// PredictColumn は正規化された列全体に対する予測値を新しいスライスで返す
func (m Model) PredictColumn(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Weight*x + m.Bias
	}
	return out
}

// RawCoefficients はモデルを元の単位の直線 y = slope*x + intercept に変換する
//
// パラメータ:
//   - feature: 特徴量列のスケーリングパラメータ
//   - label: ラベル列のスケーリングパラメータ
//
// 戻り値:
//   - slope: 元の単位での傾き
//   - intercept: 元の単位での切片
func (m Model) RawCoefficients(feature, label preprocessing.ScalingParams) (slope, intercept float64) {
	slope = m.Weight * label.Range() / feature.Range()
	intercept = m.Bias*label.Range() + label.Min - slope*feature.Min
	return slope, intercept
}

func (m Model) String() string {
	return fmt.Sprintf("Model(weight=%g, bias=%g)", m.Weight, m.Bias)
}
