package server

import (
	"encoding/json"
	"net/http"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusCode(err), errorBody{Error: err.Error(), Code: errorCode(err)})
}

func statusCode(err error) int {
	var (
		ve  *errors.ValidationError
		de  *errors.DimensionError
		nfe *errors.NotFittedError
	)
	switch {
	case errors.Is(err, errors.ErrInvalidInput), errors.As(err, &ve), errors.As(err, &de):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrTrainingInProgress), errors.As(err, &nfe):
		return http.StatusConflict
	case errors.Is(err, errors.ErrDegenerateRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	var (
		ve  *errors.ValidationError
		nfe *errors.NotFittedError
	)
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return log.ErrorInvalidInput
	case errors.Is(err, errors.ErrNotFound):
		return log.ErrorNotFound
	case errors.Is(err, errors.ErrTrainingInProgress):
		return "TRAINING_IN_PROGRESS"
	case errors.As(err, &nfe):
		return "NOT_FITTED"
	case errors.Is(err, errors.ErrDegenerateRange):
		return log.ErrorDegenerateRange
	case errors.Is(err, errors.ErrDataUnavailable):
		return log.ErrorDataUnavailable
	case errors.Is(err, errors.ErrEmptyData):
		return log.ErrorEmptyData
	case errors.As(err, &ve):
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}
