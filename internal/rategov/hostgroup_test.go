package rategov

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostGroup_AcquireRelease(t *testing.T) {
	t.Parallel()

	hg, err := NewHostGroup(1, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	release1, ok := hg.Acquire(ctx)
	require.True(t, ok)
	release2, ok := hg.Acquire(ctx)
	require.True(t, ok)

	// Capacity exhausted: a third acquire must block until a release.
	blockedCtx, blockedCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer blockedCancel()
	_, ok = hg.Acquire(blockedCtx)
	require.False(t, ok, "expected acquire to block past capacity")

	release1()
	release2()
}

func TestHostGroup_InvalidBounds(t *testing.T) {
	t.Parallel()

	_, err := NewHostGroup(0, 5)
	require.Error(t, err)

	_, err = NewHostGroup(5, 1)
	require.Error(t, err)
}

func TestHostGroup_ResizeClampsToBounds(t *testing.T) {
	t.Parallel()

	hg, err := NewHostGroup(2, 10)
	require.NoError(t, err)

	require.Equal(t, 2, hg.Resize(0))
	require.Equal(t, 10, hg.Resize(100))
	require.Equal(t, 5, hg.Resize(5))
	require.Equal(t, 5, hg.Capacity())
}
