package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "@RocketShoes:cart"

	_, err := s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, key, []byte(`[{"id":1,"amount":1}]`)))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"amount":1}]`, string(got))

	// overwritten wholesale
	require.NoError(t, s.Set(ctx, key, []byte(`[]`)))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Set(ctx, "other", []byte("x")))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	other, err := s.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "x", string(other))

	// deleting a missing key is not an error
	assert.NoError(t, s.Delete(ctx, "missing"))
}
