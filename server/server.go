// Package server exposes a pipeline.Session over HTTP under /linear.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YuminosukeSato/pricefit/config"
	"github.com/YuminosukeSato/pricefit/pipeline"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
	"github.com/YuminosukeSato/pricefit/report"
)

// Server serves the session's train/test/predict/save/load operations.
type Server struct {
	session *pipeline.Session
	cfg     config.HTTPConfig
	logger  log.Logger
	hub     *Hub
	printer *message.Printer
	handler http.Handler
}

// New builds the server and registers its hub as a training observer.
func New(session *pipeline.Session, cfg config.HTTPConfig, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	tag := language.AmericanEnglish
	if cfg.Locale != "" {
		t, err := language.Parse(cfg.Locale)
		if err != nil {
			return nil, errors.NewValidationError("http.locale", err.Error(), cfg.Locale)
		}
		tag = t
	}
	s := &Server{
		session: session,
		cfg:     cfg,
		logger:  logger.With(log.ComponentKey, "server"),
		printer: message.NewPrinter(tag),
	}
	s.hub = NewHub(s.logger, cfg.AllowedOrigin, session.RunID)
	session.AddObserver(s.hub)
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the websocket hub that streams epoch events.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /linear/points", s.handlePoints)
	api.HandleFunc("POST /linear/train", s.handleTrain)
	api.HandleFunc("POST /linear/cancel", s.handleCancel)
	api.HandleFunc("POST /linear/test", s.handleTest)
	api.HandleFunc("POST /linear/predict", s.handlePredict)
	api.HandleFunc("POST /linear/save", s.handleSave)
	api.HandleFunc("POST /linear/load", s.handleLoad)
	api.HandleFunc("GET /linear/status", s.handleStatus)
	api.HandleFunc("GET /linear/chart/loss.png", s.handleLossChart)
	api.HandleFunc("GET /linear/chart/points.png", s.handlePointsChart)

	root := http.NewServeMux()
	// websocket upgrades need the raw ResponseWriter, so they bypass gzip
	root.Handle("GET /linear/ws", s.hub)
	root.Handle("/", withGzip(s.cfg.Gzip, api))

	return withRecovery(s.logger, withLogging(s.logger, withCORS(s.cfg.AllowedOrigin, root)))
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server started", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	s.session.Cancel()
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.session.Points(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

type trainResponse struct {
	RunID  string           `json:"runId"`
	Status string           `json:"status"`
	Report *pipeline.Report `json:"report,omitempty"`
}

// handleTrain starts a run in the background. With ?wait=true it blocks until
// the run ends and returns its report.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		rep, err := s.session.Train(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, trainResponse{RunID: rep.RunID, Status: s.session.Status().Training, Report: rep})
		return
	}
	// the run outlives the request
	runID, err := s.session.StartTrain(context.WithoutCancel(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, trainResponse{RunID: runID, Status: pipeline.StatusTraining})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": s.session.Cancel()})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	loss, err := s.session.Test(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"testLoss": loss,
		"status":   s.session.Status().Testing,
	})
}

type predictRequest struct {
	X json.RawMessage `json:"x"`
}

type predictResponse struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Formatted string  `json:"formatted"`
}

// parseInput accepts a JSON number or a numeric string, the way a form field arrives.
func parseInput(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.NewValidationError("x", "is required", nil)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, errors.NewValidationError("x", "must be a number", string(raw))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, errors.NewValidationError("x", "must be a number", str)
	}
	return f, nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.fail(w, r, errors.NewValidationError("body", err.Error(), nil))
		return
	}
	x, err := parseInput(req.X)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := s.session.Predict(x)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		X:         x,
		Y:         y,
		Formatted: s.printer.Sprintf("The predicted house price is $%.2f", y),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	savedAt, err := s.session.Save(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"savedAt": savedAt.Format(time.RFC3339Nano),
		"status":  s.session.Status().Training,
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	cur, err := s.session.Load(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"savedAt": cur.SavedAt.Format(time.RFC3339Nano),
		"model":   cur.Bundle,
		"status":  s.session.Status().Training,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleLossChart(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := report.LossChart(w, st.History); err != nil {
		w.Header().Del("Content-Type")
		s.fail(w, r, err)
	}
}

func (s *Server) handlePointsChart(w http.ResponseWriter, r *http.Request) {
	points, err := s.session.Points(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var slope, intercept float64
	cur := s.session.Current()
	if cur != nil {
		slope, intercept = cur.Bundle.Model.RawCoefficients(cur.Bundle.Feature, cur.Bundle.Label)
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.ScatterChart(w, points, cur != nil, slope, intercept); err != nil {
		w.Header().Del("Content-Type")
		s.fail(w, r, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", err, "path", r.URL.Path, "status", code, log.ErrorCodeKey, errorCode(err))
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", code,
			log.ErrorCodeKey, errorCode(err), log.ErrAttrKey, err.Error())
	}
	writeError(w, err)
}
