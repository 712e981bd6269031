package oauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateStoreRoundTripsInProcess(t *testing.T) {
	s, err := NewStateStore("")
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "csrf-1", "verifier-1", "/cases/5"))

	verifier, path, ok := s.Take(context.Background(), "csrf-1")
	require.True(t, ok)
	require.Equal(t, "verifier-1", verifier)
	require.Equal(t, "/cases/5", path)
}

func TestStateStoreTakeIsSingleUse(t *testing.T) {
	s, err := NewStateStore("")
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "csrf-2", "verifier-2", ""))
	_, _, ok := s.Take(context.Background(), "csrf-2")
	require.True(t, ok)

	_, _, ok = s.Take(context.Background(), "csrf-2")
	require.False(t, ok)
}

func TestStateStoreUnknownCSRFMisses(t *testing.T) {
	s, err := NewStateStore("")
	require.NoError(t, err)

	_, _, ok := s.Take(context.Background(), "never-put")
	require.False(t, ok)
}
