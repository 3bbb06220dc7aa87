package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash_Deterministic(t *testing.T) {
	a := []byte(`{"name":"worker","type":"queue"}`)
	b := []byte(`{"type":"queue","name":"worker"}`) // different key order

	hashA, err := ComputeHash(a)
	require.NoError(t, err)
	hashB, err := ComputeHash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB, "canonicalized hashes should ignore key order")
}

func TestComputeHash_ChangesWithContent(t *testing.T) {
	a := []byte(`{"name":"worker"}`)
	b := []byte(`{"name":"worker-2"}`)

	hashA, err := ComputeHash(a)
	require.NoError(t, err)
	hashB, err := ComputeHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestComputeMapHash(t *testing.T) {
	m1 := map[string]string{"A": "1", "B": "2"}
	m2 := map[string]string{"B": "2", "A": "1"}

	assert.Equal(t, ComputeMapHash(m1), ComputeMapHash(m2))
	assert.Empty(t, ComputeMapHash(nil))
}
