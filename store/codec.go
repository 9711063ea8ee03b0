package store

import (
	"github.com/YuminosukeSato/pricefit/core/model"
	"github.com/YuminosukeSato/pricefit/predict"
)

func marshal(rec *model.ArtifactRecord) ([]byte, uint64, error) {
	return model.MarshalRecord(rec)
}

func unmarshal(payload []byte, sum uint64) (Artifact, error) {
	rec, err := model.UnmarshalRecord(payload, sum)
	if err != nil {
		return Artifact{}, err
	}
	return fromRecord(rec), nil
}

func fromRecord(rec *model.ArtifactRecord) Artifact {
	return Artifact{Bundle: predict.FromRecord(rec), SavedAt: rec.SavedAt.UTC()}
}
