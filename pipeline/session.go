// Package pipeline wires the point source, scaler, splitter, trainer, store and
// predictor into a session that owns the one current model.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/pricefit/dataset"
	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/metrics"
	"github.com/YuminosukeSato/pricefit/model_selection"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
	"github.com/YuminosukeSato/pricefit/predict"
	"github.com/YuminosukeSato/pricefit/preprocessing"
	"github.com/YuminosukeSato/pricefit/store"
)

// Status strings shown to users.
const (
	StatusUntrained = "No model trained"
	StatusTraining  = "Training..."
	StatusUntested  = "Not tested"
)

// Current is an immutable snapshot of the model in use. It is replaced as a
// whole, so a reader never sees a model paired with another run's scaling.
type Current struct {
	Bundle predict.Bundle
	// RunID identifies the training run, empty for a model loaded from the store.
	RunID string
	// SavedAt is zero until the model has been saved or when it was trained in
	// this session and not saved yet.
	SavedAt time.Time
}

// Options configures a Session.
type Options struct {
	// Key is the store slot the session saves to and loads from.
	Key string
	// Train is the trainer configuration used for every run.
	Train linear.TrainConfig
	// Observers receive per-epoch progress of every run.
	Observers []linear.Observer
	Logger    log.Logger
}

// Session owns the current (model, scaling) pair and the status strings.
//
// Predict never blocks on training: a run builds a new Current off to the side
// and swaps it in with one atomic store once it finishes.
type Session struct {
	source dataset.Source
	store  store.Store
	key    string
	cfg    linear.TrainConfig
	logger log.Logger

	current atomic.Pointer[Current]

	mu             sync.Mutex
	observers      []linear.Observer
	running        bool
	runID          string
	cancel         context.CancelFunc
	trainingStatus string
	testingStatus  string
	history        []linear.EpochStats
	last           *Report

	// persistMu serializes Save, Load and the swap at the end of a run.
	// lastSavedAt and lastTrainedAt are guarded by it.
	persistMu     sync.Mutex
	lastSavedAt   time.Time
	lastTrainedAt time.Time
}

// NewSession returns a session with no current model.
func NewSession(src dataset.Source, st store.Store, opts Options) (*Session, error) {
	if opts.Key == "" {
		opts.Key = store.DefaultKey
	}
	if err := store.ValidateKey(opts.Key); err != nil {
		return nil, err
	}
	if err := opts.Train.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Session{
		source:         src,
		store:          st,
		key:            opts.Key,
		cfg:            opts.Train,
		logger:         opts.Logger.With(log.ComponentKey, "pipeline.Session", log.ModelNameKey, opts.Key),
		observers:      append([]linear.Observer(nil), opts.Observers...),
		trainingStatus: StatusUntrained,
		testingStatus:  StatusUntested,
	}, nil
}

// AddObserver registers o for runs started after the call.
func (s *Session) AddObserver(o linear.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Key returns the store slot of the session.
func (s *Session) Key() string {
	return s.key
}

// Current returns the model in use, or nil if there is none.
func (s *Session) Current() *Current {
	return s.current.Load()
}

// Points returns the raw points from the session's source.
func (s *Session) Points(ctx context.Context) ([]dataset.Point, error) {
	return s.source.Points(ctx)
}

// Predict maps one raw feature value to a raw label value with the current model.
func (s *Session) Predict(x float64) (float64, error) {
	cur := s.current.Load()
	if cur == nil {
		return 0, errors.NewNotFittedError("Session", "Predict")
	}
	y, err := cur.Bundle.Predict(x)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Prediction",
		log.OperationKey, log.OperationPredict,
		log.InputKey, x,
		log.PredictionKey, y,
	)
	return y, nil
}

func (s *Session) begin(ctx context.Context) (context.Context, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, "", errors.WithStack(errors.ErrTrainingInProgress)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.runID = uuid.NewString()
	s.trainingStatus = StatusTraining
	s.history = nil
	return runCtx, s.runID, nil
}

func (s *Session) end(rep *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if rep != nil {
		s.last = rep
		s.testingStatus = testingStatus(rep.TestLoss)
	}
	s.trainingStatus = trainedStatus(s.current.Load())
}

// Cancel stops the run in progress, if any. The run ends at the next batch
// boundary and the current model is left as it was.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// StartTrain runs Train in a new goroutine and returns the run ID at once.
// It fails with ErrTrainingInProgress when a run is already going.
func (s *Session) StartTrain(ctx context.Context) (string, error) {
	runCtx, runID, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	go func() {
		var rep *Report
		err := errors.SafeExecute("pipeline.Train", func() error {
			var err error
			rep, err = s.train(runCtx, runID)
			return err
		})
		if err != nil {
			s.logger.Error("Training run failed", err, log.EstimatorIDKey, runID)
		}
		s.end(rep)
	}()
	return runID, nil
}

// Train fetches points, fits the scaler on the prepared columns, splits them
// in half, trains on the first half, evaluates on the second half and makes
// the result the current model. It blocks until the run ends.
func (s *Session) Train(ctx context.Context) (*Report, error) {
	runCtx, runID, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	var rep *Report
	err = errors.SafeExecute("pipeline.Train", func() error {
		var err error
		rep, err = s.train(runCtx, runID)
		return err
	})
	s.end(rep)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// prepared holds the normalized halves of one run. It is owned by the call
// that built it and dropped when that call returns.
type prepared struct {
	ds     *model_selection.Dataset
	scaler *preprocessing.MinMaxScaler
}

func (s *Session) prepare(ctx context.Context, scaler *preprocessing.MinMaxScaler) (*prepared, error) {
	points, err := s.source.Points(ctx)
	if err != nil {
		return nil, err
	}
	x, y, err := dataset.Columns(points)
	if err != nil {
		return nil, err
	}
	x, y, err = model_selection.Prepare(x, y, model_selection.NewRand(s.cfg.Seed))
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, errors.NewDataUnavailableError("pipeline.prepare", "need at least two points")
	}
	if scaler == nil {
		scaler = preprocessing.NewMinMaxScaler()
		if err := scaler.Fit(x, y); err != nil {
			return nil, err
		}
	}
	nx, ny, err := scaler.Transform(x, y)
	if err != nil {
		return nil, err
	}
	ds, err := model_selection.TrainTestSplit(nx, ny)
	if err != nil {
		return nil, err
	}
	return &prepared{ds: ds, scaler: scaler}, nil
}

func (s *Session) train(ctx context.Context, runID string) (*Report, error) {
	logger := s.logger.With(log.EstimatorIDKey, runID)
	start := time.Now()

	p, err := s.prepare(ctx, nil)
	if err != nil {
		logger.Error("Preparing data failed", err, log.PhaseKey, log.PhasePreprocessing)
		return nil, err
	}

	s.mu.Lock()
	observers := append(linear.MultiObserver{linear.ObserverFunc(s.record)}, s.observers...)
	s.mu.Unlock()

	tr, err := linear.NewTrainer(
		linear.WithConfig(s.cfg),
		linear.WithObserver(observers),
		linear.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	m := tr.CreateModel()
	res, err := tr.Train(ctx, m, p.ds.TrainX, p.ds.TrainY)
	if err != nil {
		return nil, err
	}

	testLoss, r2, err := evaluate(*m, p.ds.TestX, p.ds.TestY)
	if err != nil {
		return nil, err
	}

	cur := &Current{
		Bundle: predict.Bundle{Model: *m, Feature: p.scaler.Feature, Label: p.scaler.Label},
		RunID:  runID,
	}
	s.persistMu.Lock()
	s.current.Store(cur)
	s.lastTrainedAt = time.Now().UTC()
	s.persistMu.Unlock()

	rep := newReport(runID, cur.Bundle, res, testLoss, r2, len(p.ds.TestX), time.Since(start))
	logger.Info("Model trained",
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseTesting,
		log.TestLossKey, testLoss,
		log.R2ScoreKey, r2,
		log.DurationMsKey, rep.Duration.Milliseconds(),
	)
	return rep, nil
}

func evaluate(m linear.Model, x, y []float64) (loss, r2 float64, err error) {
	loss, err = linear.Evaluate(m, x, y)
	if err != nil {
		return 0, 0, err
	}
	// R² is unchanged by the affine label scaling.
	r2, err = metrics.R2Score(metrics.Vec(y), metrics.Vec(m.PredictColumn(x)))
	if err != nil {
		return 0, 0, err
	}
	return loss, r2, nil
}

func (s *Session) record(st linear.EpochStats) {
	s.mu.Lock()
	s.history = append(s.history, st)
	s.mu.Unlock()
}

// Test evaluates the current model on the test half of the source data and
// updates the testing status. The split is reproduced from the configured seed,
// so it is the same half the model was held out from.
func (s *Session) Test(ctx context.Context) (float64, error) {
	cur := s.current.Load()
	if cur == nil {
		return 0, errors.NewNotFittedError("Session", "Test")
	}
	scaler, err := preprocessing.NewMinMaxScalerFromParams(cur.Bundle.Feature, cur.Bundle.Label)
	if err != nil {
		return 0, err
	}
	p, err := s.prepare(ctx, scaler)
	if err != nil {
		return 0, err
	}
	loss, r2, err := evaluate(cur.Bundle.Model, p.ds.TestX, p.ds.TestY)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.testingStatus = testingStatus(loss)
	s.mu.Unlock()
	s.logger.Info("Model tested",
		log.OperationKey, log.OperationEvaluate,
		log.TestLossKey, loss,
		log.R2ScoreKey, r2,
	)
	return loss, nil
}

// Save persists the current model under the session key.
func (s *Session) Save(ctx context.Context) (time.Time, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	cur := s.current.Load()
	if cur == nil {
		return time.Time{}, errors.NewNotFittedError("Session", "Save")
	}
	savedAt, err := s.store.Save(ctx, s.key, store.Artifact{Bundle: cur.Bundle})
	if err != nil {
		s.logger.Error("Saving model failed", err, log.OperationKey, log.OperationSave, log.StoreKeyKey, s.key)
		return time.Time{}, err
	}

	if savedAt.After(s.lastSavedAt) {
		s.lastSavedAt = savedAt
	}

	next := *cur
	next.SavedAt = savedAt
	// a run that finished meanwhile wins; its model is not the one we saved
	s.current.CompareAndSwap(cur, &next)

	s.mu.Lock()
	if !s.running {
		s.trainingStatus = trainedStatus(s.current.Load())
	}
	s.mu.Unlock()

	s.logger.Info("Model saved",
		log.OperationKey, log.OperationSave,
		log.StoreKeyKey, s.key,
		log.SavedAtKey, savedAt,
	)
	return savedAt, nil
}

// Load replaces the current model with the artifact stored under the session key.
func (s *Session) Load(ctx context.Context) (*Current, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	a, err := s.loadArtifact(ctx)
	if err != nil {
		return nil, err
	}
	return s.install(a), nil
}

// Reload follows a save made outside the session. It loads key only if it is
// the session key and the stored artifact is newer than both the last save and
// the last completed run of this session; otherwise it returns nil. A session's
// own save and any model trained after it are never replaced this way.
func (s *Session) Reload(ctx context.Context, key string) (*Current, error) {
	if key != s.key {
		return nil, nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	a, err := s.loadArtifact(ctx)
	if err != nil {
		return nil, err
	}
	if !a.SavedAt.After(s.lastSavedAt) || !a.SavedAt.After(s.lastTrainedAt) {
		s.logger.Debug("Stored model is not newer, keeping current",
			log.OperationKey, log.OperationLoad,
			log.StoreKeyKey, s.key,
			log.SavedAtKey, a.SavedAt,
		)
		return nil, nil
	}
	return s.install(a), nil
}

// loadArtifact must be called with persistMu held.
func (s *Session) loadArtifact(ctx context.Context) (store.Artifact, error) {
	a, err := s.store.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error("Loading model failed", err, log.OperationKey, log.OperationLoad, log.StoreKeyKey, s.key)
		}
		return store.Artifact{}, err
	}
	if err := a.Bundle.Validate(); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

// install must be called with persistMu held.
func (s *Session) install(a store.Artifact) *Current {
	cur := &Current{Bundle: a.Bundle, SavedAt: a.SavedAt}
	s.current.Store(cur)
	if a.SavedAt.After(s.lastSavedAt) {
		s.lastSavedAt = a.SavedAt
	}

	s.mu.Lock()
	if !s.running {
		s.trainingStatus = trainedStatus(cur)
	}
	s.testingStatus = StatusUntested
	s.mu.Unlock()

	s.logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.StoreKeyKey, s.key,
		log.SavedAtKey, a.SavedAt,
	)
	return cur
}

// Status is a snapshot of the session for display.
type Status struct {
	Training   string              `json:"training"`
	Testing    string              `json:"testing"`
	InProgress bool                `json:"inProgress"`
	RunID      string              `json:"runId,omitempty"`
	History    []linear.EpochStats `json:"history"`
	Report     *Report             `json:"report,omitempty"`
}

// Status returns the current status strings, the loss history of the latest
// run and its report.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Training:   s.trainingStatus,
		Testing:    s.testingStatus,
		InProgress: s.running,
		RunID:      s.runID,
		History:    append([]linear.EpochStats(nil), s.history...),
		Report:     s.last,
	}
}

// RunID returns the ID of the latest run, empty before the first one.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// LastReport returns the report of the last completed run, or nil.
func (s *Session) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func trainedStatus(cur *Current) string {
	switch {
	case cur == nil:
		return StatusUntrained
	case cur.SavedAt.IsZero():
		return "Trained (unsaved)"
	default:
		return fmt.Sprintf("Trained (saved %s)", cur.SavedAt.Format(time.RFC3339))
	}
}

func testingStatus(loss float64) string {
	return fmt.Sprintf("Testing set loss: %.6f", loss)
}
