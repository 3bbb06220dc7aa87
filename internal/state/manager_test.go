package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateAbsent, "ABSENT"},
		{StateCreated, "CREATED"},
		{StateRunning, "RUNNING"},
		{StateStale, "STALE"},
		{StateBroken, "BROKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestStateIsUsable(t *testing.T) {
	usable := []State{StateCreated, StateRunning}
	notUsable := []State{StateAbsent, StateStale, StateBroken}

	for _, s := range usable {
		assert.True(t, s.IsUsable(), "expected %s to be usable", s)
	}

	for _, s := range notUsable {
		assert.False(t, s.IsUsable(), "expected %s to not be usable", s)
	}
}

func TestStateNeedsRecreate(t *testing.T) {
	needsRecreate := []State{StateStale, StateBroken}
	noRecreate := []State{StateAbsent, StateCreated, StateRunning}

	for _, s := range needsRecreate {
		assert.True(t, s.NeedsRecreate(), "expected %s to need recreate", s)
	}

	for _, s := range noRecreate {
		assert.False(t, s.NeedsRecreate(), "expected %s to not need recreate", s)
	}
}

func TestComputeEnvKey_IsStableAndTwelveChars(t *testing.T) {
	a := ComputeEnvKey("/home/user/project")
	b := ComputeEnvKey("/home/user/project")
	assert.Equal(t, a, b)
	assert.Len(t, a, 12)
}

func TestComputeEnvKey_DiffersByPath(t *testing.T) {
	a := ComputeEnvKey("/home/user/project-a")
	b := ComputeEnvKey("/home/user/project-b")
	assert.NotEqual(t, a, b)
}
