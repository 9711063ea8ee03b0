// Package log defines standard attribute keys for the training pipeline.
//
// Using these keys keeps log records from the scaler, trainer, model store
// and HTTP layer queryable with the same field names. Keys follow a
// hierarchical naming convention (e.g. "training.epoch", "store.key").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or component emitting the record.
	// Examples: "LinearUnit", "MinMaxScaler", "FileStore"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one training run (a UUID generated per run).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the pipeline.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// TrainSamplesKey is the number of rows used for gradient updates.
	TrainSamplesKey = "data.train_samples"

	// ValidationSamplesKey is the number of rows held out for validation loss.
	ValidationSamplesKey = "data.validation_samples"

	// BatchSizeKey indicates the size of mini-batches.
	BatchSizeKey = "data.batch_size"

	// SourceKey names the point source ("csv", "http", "static").
	SourceKey = "data.source"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the training loss (mean squared error, normalized units).
	LossKey = "metrics.loss"

	// ValLossKey records the validation loss.
	ValLossKey = "metrics.val_loss"

	// TestLossKey records the loss on the held-out test half.
	TestLossKey = "metrics.test_loss"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// EpochKey records the current epoch number during training (1-based).
	EpochKey = "training.epoch"
)

// Prediction Context
const (
	// InputKey records the raw input of a prediction.
	InputKey = "preds.input"

	// PredictionKey records the denormalized prediction.
	PredictionKey = "preds.value"
)

// Persistence Context
const (
	// StoreKeyKey records the artifact key.
	StoreKeyKey = "store.key"

	// StoreBackendKey records the store implementation ("memory", "file", "sqlite").
	StoreBackendKey = "store.backend"

	// SavedAtKey records the timestamp of a saved artifact.
	SavedAtKey = "store.saved_at"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// LearningRateKey records the learning rate for gradient descent.
	LearningRateKey = "hyperparams.learning_rate"

	// EpochsKey records the configured epoch count.
	EpochsKey = "hyperparams.epochs"

	// ValidationSplitKey records the validation fraction.
	ValidationSplitKey = "hyperparams.validation_split"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSplit     = "split"
	OperationEvaluate  = "evaluate"
	OperationSave      = "save"
	OperationLoad      = "load"
	OperationFetch     = "fetch"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
	PhasePersistence   = "persistence"

	ErrorEmptyData       = "EMPTY_DATA"
	ErrorInvalidInput    = "INVALID_INPUT"
	ErrorConvergence     = "CONVERGENCE_FAILURE"
	ErrorDegenerateRange = "DEGENERATE_RANGE"
	ErrorNotFound        = "NOT_FOUND"
	ErrorDataUnavailable = "DATA_UNAVAILABLE"
)
