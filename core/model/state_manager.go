// Package model provides lifecycle state, the persisted artifact record and its
// codec shared by the trainer and the model stores.
package model

import (
	"fmt"
	"sync"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// State is the lifecycle position of one training run.
//
//	Uninitialized -> Training -> Trained
//	                         \-> Canceled
//
// Trained and Canceled are terminal; a new run needs a new StateManager.
type State int

const (
	StateUninitialized State = iota
	StateTraining
	StateTrained
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateManager manages the lifecycle state of a training run in a thread-safe manner.
type StateManager struct {
	mu    sync.RWMutex
	state State

	nSamples int
}

// NewStateManager creates a new StateManager in the Uninitialized state.
func NewStateManager() *StateManager {
	return &StateManager{state: StateUninitialized}
}

// State returns the current state.
func (s *StateManager) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Begin moves Uninitialized -> Training. Any other starting state is an error:
// a finished run is never restarted in place.
func (s *StateManager) Begin(nSamples int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUninitialized {
		return errors.NewValidationError("state", "training can only start from the uninitialized state", s.state.String())
	}
	s.state = StateTraining
	s.nSamples = nSamples
	return nil
}

// Finish moves Training -> Trained (completed) or Training -> Canceled.
func (s *StateManager) Finish(completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTraining {
		return
	}
	if completed {
		s.state = StateTrained
	} else {
		s.state = StateCanceled
	}
}

// IsFitted returns whether the run completed.
func (s *StateManager) IsFitted() bool {
	return s.State() == StateTrained
}

// RequireFitted returns a NotFittedError if the run has not completed.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// ModelState is a serializable snapshot of a StateManager.
type ModelState struct {
	State    string `json:"state"`
	NSamples int    `json:"n_samples,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ModelState{State: s.state.String(), NSamples: s.nSamples}
}
