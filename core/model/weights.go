package model

import (
	"math"
	"time"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// RecordVersion は ArtifactRecord のフォーマットバージョン
const RecordVersion = "1"

// ScalingRecord は列のスケーリングパラメータのシリアライズ形式
type ScalingRecord struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ArtifactRecord は保存されるモデル成果物のシリアライズ形式
//
// 学習済みパラメータは対応するスケーリングパラメータなしでは使えないため、
// 両方を常に一つのレコードとして保存・読み込みする。
type ArtifactRecord struct {
	// Version はフォーマットバージョン（互換性チェック用）
	Version string `json:"version"`

	// Weight は正規化空間での重み
	Weight float64 `json:"weight"`

	// Bias は正規化空間での切片
	Bias float64 `json:"bias"`

	// ScalingFeature は特徴量列の min/max
	ScalingFeature ScalingRecord `json:"scalingFeature"`

	// ScalingLabel はラベル列の min/max
	ScalingLabel ScalingRecord `json:"scalingLabel"`

	// SavedAt は保存時刻（UTC, RFC3339Nano）
	SavedAt time.Time `json:"savedAt"`
}

// Validate はArtifactRecordの妥当性を検証
func (r *ArtifactRecord) Validate() error {
	if r.Version != RecordVersion {
		return errors.NewValidationError("version", "unsupported artifact version", r.Version)
	}

	for name, v := range map[string]float64{
		"weight":             r.Weight,
		"bias":               r.Bias,
		"scalingFeature.min": r.ScalingFeature.Min,
		"scalingFeature.max": r.ScalingFeature.Max,
		"scalingLabel.min":   r.ScalingLabel.Min,
		"scalingLabel.max":   r.ScalingLabel.Max,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValidationError(name, "must be finite", v)
		}
	}

	if !(r.ScalingFeature.Max > r.ScalingFeature.Min) {
		return errors.NewValidationError("scalingFeature", "max must be greater than min", r.ScalingFeature)
	}
	if !(r.ScalingLabel.Max > r.ScalingLabel.Min) {
		return errors.NewValidationError("scalingLabel", "max must be greater than min", r.ScalingLabel)
	}

	if r.SavedAt.IsZero() {
		return errors.NewValidationError("savedAt", "is required", r.SavedAt)
	}
	return nil
}
