package pipeline

import (
	"time"

	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/predict"
)

// Report summarizes one completed training run.
type Report struct {
	RunID string `json:"runId"`

	FinalTrainLoss float64 `json:"finalTrainLoss"`
	FinalValLoss   float64 `json:"finalValLoss"`
	TestLoss       float64 `json:"testLoss"`
	R2             float64 `json:"r2"`

	// Slope and Intercept are the fitted line in raw units: price = Slope*sqft + Intercept.
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`

	TrainLoss []float64 `json:"trainLoss"`
	ValLoss   []float64 `json:"valLoss"`

	TrainSamples      int `json:"trainSamples"`
	ValidationSamples int `json:"validationSamples"`
	TestSamples       int `json:"testSamples"`

	Duration time.Duration `json:"duration"`
}

func newReport(runID string, b predict.Bundle, res *linear.TrainingResult, testLoss, r2 float64, nTest int, d time.Duration) *Report {
	slope, intercept := b.Model.RawCoefficients(b.Feature, b.Label)
	return &Report{
		RunID:             runID,
		FinalTrainLoss:    res.FinalTrainLoss,
		FinalValLoss:      res.FinalValLoss,
		TestLoss:          testLoss,
		R2:                r2,
		Slope:             slope,
		Intercept:         intercept,
		TrainLoss:         res.TrainLoss,
		ValLoss:           res.ValLoss,
		TrainSamples:      res.TrainSamples,
		ValidationSamples: res.ValidationSamples,
		TestSamples:       nTest,
		Duration:          d,
	}
}
