package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerSetGet(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "formula-order/op1", []byte(`[3,1,2]`)))

	got, err := s.Get(ctx, "formula-order/op1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[3,1,2]`), got)
}

func TestBadgerGetMissingKey(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerLastWriteWins(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("a")))
	require.NoError(t, s.Set(ctx, "k", []byte("b")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}
