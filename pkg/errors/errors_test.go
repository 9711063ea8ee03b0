package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "FileStore.Save",
			kind:     "write failed",
			err:      fmt.Errorf("disk full"),
			wantMsg:  "pricefit: FileStore.Save: write failed: disk full",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "FileStore.Load",
			kind:     "checksum mismatch",
			err:      nil,
			wantMsg:  "pricefit: FileStore.Load: checksum mismatch",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Prepare", 10, 9, 0)

	want := "pricefit: Prepare: dimension mismatch on axis 0 (rows). Expected 10, got 9"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Session", "Predict")

	want := "pricefit: Session: this model is not fitted yet. Train or load a model before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestPipelineErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		target   interface{}
	}{
		{"degenerate range", NewDegenerateRangeError("Fit", "feature", 3), ErrDegenerateRange, new(*DegenerateRangeError)},
		{"invalid input", NewInvalidInputError("Predict", math.NaN()), ErrInvalidInput, new(*InvalidInputError)},
		{"not found", NewNotFoundError("house-price-model"), ErrNotFound, new(*NotFoundError)},
		{"data unavailable", NewDataUnavailableError("csv", "no rows"), ErrDataUnavailable, new(*DataUnavailableError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.True(t, Is(Wrap(tt.err, "outer"), tt.sentinel))
			assert.True(t, As(tt.err, tt.target))
			assert.Contains(t, tt.err.Error(), "pricefit:")
		})
	}

	// センチネル同士は区別される
	assert.False(t, Is(NewNotFoundError("k"), ErrDataUnavailable))
	assert.False(t, Is(NewModelError("Load", "io", nil), ErrNotFound))
}

func TestDegenerateRangeErrorMessage(t *testing.T) {
	err := NewDegenerateRangeError("Scaler.Fit", "label", 42)
	assert.Equal(t, "pricefit: Scaler.Fit: degenerate range in label column: min == max == 42", err.Error())

	err = NewDegenerateRangeError("Scaler.Fit", "", 1.5)
	assert.Equal(t, "pricefit: Scaler.Fit: degenerate range: min == max == 1.5", err.Error())
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("SGD", 20, "loss did not decrease")

	want := "SGD failed to converge after 20 iterations: loss did not decrease"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnUsesZerologHookFirst(t *testing.T) {
	var viaHandler, viaZerolog []error
	SetWarningHandler(func(w error) { viaHandler = append(viaHandler, w) })
	t.Cleanup(func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(w error) {})
	})

	Warn(NewConvergenceWarning("SGD", 1, ""))
	require.Len(t, viaHandler, 1)

	SetZerologWarnFunc(func(w error) { viaZerolog = append(viaZerolog, w) })
	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 0))
	assert.Len(t, viaHandler, 1)
	assert.Len(t, viaZerolog, 1)
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Split", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Split: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("loss", 0.5, 1))
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := CheckScalar("loss", v, 3)
		var numErr *NumericalInstabilityError
		require.True(t, As(err, &numErr))
		assert.Equal(t, 3, numErr.Iteration)
	}
	assert.Error(t, CheckNumericalStability("batch", []float64{1, 2, math.NaN()}, 0))
}
