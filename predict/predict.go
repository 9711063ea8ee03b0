// Package predict は学習済みモデルとスケーリングパラメータの組で単一の予測を行う
package predict

import (
	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/preprocessing"
)

// Bundle はモデルとそれが依存するスケーリングパラメータの組
//
// Bundle は値として扱い、作成後は変更しない。複数のゴルーチンから
// 同時に Predict してよい。
type Bundle struct {
	Model   linear.Model                `json:"model"`
	Feature preprocessing.ScalingParams `json:"scalingFeature"`
	Label   preprocessing.ScalingParams `json:"scalingLabel"`
}

// Validate はBundleが予測に使えるか検証する
func (b Bundle) Validate() error {
	if !errors.IsFinite(b.Model.Weight) || !errors.IsFinite(b.Model.Bias) {
		return errors.NewValidationError("model", "parameters must be finite", b.Model)
	}
	if err := b.Feature.Validate("feature"); err != nil {
		return err
	}
	return b.Label.Validate("label")
}

// Record は永続化用のレコードに変換する。SavedAt は呼び出し側が設定する。
func (b Bundle) Record() *model.ArtifactRecord {
	return &model.ArtifactRecord{
		Version:        model.RecordVersion,
		Weight:         b.Model.Weight,
		Bias:           b.Model.Bias,
		ScalingFeature: b.Feature.Record(),
		ScalingLabel:   b.Label.Record(),
	}
}

// FromRecord は永続化レコードからBundleを復元する
func FromRecord(r *model.ArtifactRecord) Bundle {
	return Bundle{
		Model:   linear.Model{Weight: r.Weight, Bias: r.Bias},
		Feature: preprocessing.ParamsFromRecord(r.ScalingFeature),
		Label:   preprocessing.ParamsFromRecord(r.ScalingLabel),
	}
}

// Predict は元の単位の入力1つから元の単位の予測値を返す
//
// 入力を Feature で正規化し、モデルを適用し、Label で逆変換する。
//
// パラメータ:
//   - raw: 元の単位の入力 (例: sqft_living)
//
// 戻り値:
//   - float64: 元の単位の予測値 (例: price)
//   - error: raw が有限の数値でない場合の InvalidInputError
func (b Bundle) Predict(raw float64) (float64, error) {
	if !errors.IsFinite(raw) {
		return 0, errors.NewInvalidInputError("predict.Predict", raw)
	}
	xn := preprocessing.NormalizeValue(raw, b.Feature)
	return preprocessing.DenormalizeValue(b.Model.Predict(xn), b.Label), nil
}

// Predict は Bundle{m, feature, label}.Predict(raw) と同じ
func Predict(m linear.Model, feature, label preprocessing.ScalingParams, raw float64) (float64, error) {
	return Bundle{Model: m, Feature: feature, Label: label}.Predict(raw)
}
