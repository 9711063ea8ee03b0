package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

func TestStateManager_Lifecycle(t *testing.T) {
	tests := []struct {
		name      string
		completed bool
		want      State
		fitted    bool
	}{
		{name: "completed run", completed: true, want: StateTrained, fitted: true},
		{name: "canceled run", completed: false, want: StateCanceled, fitted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateManager()
			assert.Equal(t, StateUninitialized, sm.State())
			assert.False(t, sm.IsFitted())

			require.NoError(t, sm.Begin(80))
			assert.Equal(t, StateTraining, sm.State())

			sm.Finish(tt.completed)
			assert.Equal(t, tt.want, sm.State())
			assert.Equal(t, tt.fitted, sm.IsFitted())

			st := sm.GetState()
			assert.Equal(t, tt.want.String(), st.State)
			assert.Equal(t, 80, st.NSamples)
		})
	}
}

func TestStateManager_BeginOnlyOnce(t *testing.T) {
	sm := NewStateManager()
	require.NoError(t, sm.Begin(10))

	err := sm.Begin(10)
	require.Error(t, err)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	sm.Finish(true)
	assert.Error(t, sm.Begin(10), "a finished run must not restart")
}

func TestStateManager_FinishWithoutBegin(t *testing.T) {
	sm := NewStateManager()
	sm.Finish(true)
	assert.Equal(t, StateUninitialized, sm.State())
}

func TestStateManager_RequireFitted(t *testing.T) {
	sm := NewStateManager()
	err := sm.RequireFitted("Trainer", "Evaluate")
	require.Error(t, err)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Trainer", nf.ModelName)

	require.NoError(t, sm.Begin(1))
	sm.Finish(true)
	assert.NoError(t, sm.RequireFitted("Trainer", "Evaluate"))
}

func TestStateManager_ConcurrentBegin(t *testing.T) {
	sm := NewStateManager()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.Begin(1) == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "training", StateTraining.String())
	assert.Equal(t, "trained", StateTrained.String())
	assert.Equal(t, "canceled", StateCanceled.String())
	assert.Equal(t, "State(9)", State(9).String())
}
