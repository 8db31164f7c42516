package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	st, err := NewLocalStore(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestLocalStore_State(t *testing.T) {
	st := newTestLocalStore(t)
	ctx := context.Background()

	data, err := st.LoadState(ctx, "wizard_state")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, st.SaveState(ctx, "wizard_state", []byte(`{"v":1}`)))
	require.NoError(t, st.SaveState(ctx, "wizard_state", []byte(`{"v":2}`)))

	data, err = st.LoadState(ctx, "wizard_state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))

	require.NoError(t, st.DeleteState(ctx, "wizard_state"))
	data, err = st.LoadState(ctx, "wizard_state")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLocalStore_Token(t *testing.T) {
	st := newTestLocalStore(t)
	ctx := context.Background()

	tok, err := st.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, st.SetToken(ctx, "secret-token"))
	tok, err = st.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", tok)

	require.NoError(t, st.ClearToken(ctx))
	tok, err = st.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestLocalStore_NamespacesIndependent(t *testing.T) {
	st := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveState(ctx, "wizard_state", []byte("a")))
	require.NoError(t, st.SetToken(ctx, "b"))
	require.NoError(t, st.ClearToken(ctx))

	data, err := st.LoadState(ctx, "wizard_state")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}
