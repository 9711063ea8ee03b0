// Package preprocessing はmin-max正規化とその逆変換を提供する
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/core/parallel"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// ScalingParams は1列分のmin-maxパラメータ
//
// Max > Min のときのみ正規化が定義される。
type ScalingParams struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Range は Max - Min を返す
func (p ScalingParams) Range() float64 {
	return p.Max - p.Min
}

// Validate はパラメータで正規化が可能か検証する
func (p ScalingParams) Validate(column string) error {
	if !errors.IsFinite(p.Min) || !errors.IsFinite(p.Max) {
		return errors.NewValidationError(column, "scaling params must be finite", p)
	}
	if !(p.Max > p.Min) {
		return errors.NewDegenerateRangeError("ScalingParams.Validate", column, p.Min)
	}
	return nil
}

// Record は永続化用のレコードに変換する
func (p ScalingParams) Record() model.ScalingRecord {
	return model.ScalingRecord{Min: p.Min, Max: p.Max}
}

// ParamsFromRecord は永続化レコードから ScalingParams を復元する
func ParamsFromRecord(r model.ScalingRecord) ScalingParams {
	return ScalingParams{Min: r.Min, Max: r.Max}
}

func (p ScalingParams) String() string {
	return fmt.Sprintf("ScalingParams(min=%g, max=%g)", p.Min, p.Max)
}

// Fit は列全体から最小値・最大値を計算する
//
// パラメータ:
//   - column: 分割前の列全体
//   - name: エラーメッセージ用の列名 ("feature", "label" など)
//
// 戻り値:
//   - ScalingParams: 計算されたパラメータ
//   - error: 空の列の場合は ErrEmptyData、定数列の場合は DegenerateRangeError
func Fit(column []float64, name string) (ScalingParams, error) {
	if len(column) == 0 {
		return ScalingParams{}, errors.NewModelError("preprocessing.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckNumericalStability("preprocessing.Fit", column, -1); err != nil {
		return ScalingParams{}, err
	}

	p := ScalingParams{Min: floats.Min(column), Max: floats.Max(column)}
	if p.Max == p.Min {
		return ScalingParams{}, errors.NewDegenerateRangeError("preprocessing.Fit", name, p.Min)
	}
	return p, nil
}

// NormalizeValue は (v - min) / (max - min) を返す
func NormalizeValue(v float64, p ScalingParams) float64 {
	return (v - p.Min) / (p.Max - p.Min)
}

// DenormalizeValue は v * (max - min) + min を返す
func DenormalizeValue(v float64, p ScalingParams) float64 {
	return v*(p.Max-p.Min) + p.Min
}

// Normalize は列を要素ごとに正規化した新しいスライスを返す
//
// 入力 column は変更されない。戻り値の所有権は呼び出し側にある。
//
// 使用例:
//
//	p, err := preprocessing.Fit(prices, "label")
//	norm := preprocessing.Normalize(prices, p)
func Normalize(column []float64, p ScalingParams) []float64 {
	out := make([]float64, len(column))
	parallel.Map(out, column, func(v float64) float64 { return NormalizeValue(v, p) })
	return out
}

// Denormalize は Normalize の逆変換を行った新しいスライスを返す
func Denormalize(column []float64, p ScalingParams) []float64 {
	out := make([]float64, len(column))
	parallel.Map(out, column, func(v float64) float64 { return DenormalizeValue(v, p) })
	return out
}

// MinMaxScaler は特徴量列とラベル列のパラメータを組で保持するスケーラー
//
// 2列は常に同じ訓練サイクルで学習され、同時に置き換えられる。
type MinMaxScaler struct {
	// Feature は特徴量列 (sqft_living) のパラメータ
	Feature ScalingParams

	// Label はラベル列 (price) のパラメータ
	Label ScalingParams

	fitted bool
}

// NewMinMaxScaler は未学習のMinMaxScalerを作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// NewMinMaxScalerFromParams は保存済みのパラメータから学習済みのMinMaxScalerを作成する
func NewMinMaxScalerFromParams(feature, label ScalingParams) (*MinMaxScaler, error) {
	if err := feature.Validate("feature"); err != nil {
		return nil, err
	}
	if err := label.Validate("label"); err != nil {
		return nil, err
	}
	return &MinMaxScaler{Feature: feature, Label: label, fitted: true}, nil
}

// Fit は特徴量列とラベル列それぞれの最小値・最大値を計算する
//
// パラメータ:
//   - features: 特徴量列
//   - labels: ラベル列 (features と同じ長さ)
//
// 戻り値:
//   - error: 長さ不一致、空の列、定数列の場合のエラー
func (m *MinMaxScaler) Fit(features, labels []float64) error {
	if len(features) != len(labels) {
		return errors.NewDimensionError("MinMaxScaler.Fit", len(features), len(labels), 0)
	}
	fp, err := Fit(features, "feature")
	if err != nil {
		return err
	}
	lp, err := Fit(labels, "label")
	if err != nil {
		return err
	}
	m.Feature, m.Label, m.fitted = fp, lp, true
	return nil
}

// IsFitted はパラメータが計算済みかどうかを返す
func (m *MinMaxScaler) IsFitted() bool {
	return m.fitted
}

// Transform は両列を正規化する
func (m *MinMaxScaler) Transform(features, labels []float64) ([]float64, []float64, error) {
	if !m.fitted {
		return nil, nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	if len(features) != len(labels) {
		return nil, nil, errors.NewDimensionError("MinMaxScaler.Transform", len(features), len(labels), 0)
	}
	return Normalize(features, m.Feature), Normalize(labels, m.Label), nil
}

// FitTransform は学習と変換を一度に行う
func (m *MinMaxScaler) FitTransform(features, labels []float64) ([]float64, []float64, error) {
	if err := m.Fit(features, labels); err != nil {
		return nil, nil, err
	}
	return m.Transform(features, labels)
}

// InverseTransformLabel は正規化されたラベル列を元の単位に戻す
func (m *MinMaxScaler) InverseTransformLabel(labels []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransformLabel")
	}
	return Denormalize(labels, m.Label), nil
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.fitted {
		return "MinMaxScaler(unfitted)"
	}
	return fmt.Sprintf("MinMaxScaler(feature=[%g, %g], label=[%g, %g])",
		m.Feature.Min, m.Feature.Max, m.Label.Min, m.Label.Max)
}
