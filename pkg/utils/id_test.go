package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "-")
}

func TestDeterministicID(t *testing.T) {
	a := DeterministicID("alice@example.com", "978-0-452-28423-4")
	b := DeterministicID("alice@example.com", "978-0-452-28423-4")
	require.Equal(t, a, b)
	require.Len(t, a, 32)

	c := DeterministicID("bob@example.com", "978-0-452-28423-4")
	require.NotEqual(t, a, c)

	// part boundaries matter: ("ab","c") and ("a","bc") are different keys
	require.NotEqual(t, DeterministicID("ab", "c"), DeterministicID("a", "bc"))
}
