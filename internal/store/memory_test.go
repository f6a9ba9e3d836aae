package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SaveAndLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindAccount, "1010", []byte(`{"code":"1010"}`)))

	got, err := m.Load(ctx, KindAccount, "1010")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"1010"}`, string(got))
}

func TestMemory_LoadNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Load(context.Background(), KindAccount, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindTransaction, "b", []byte("2")))
	require.NoError(t, m.Save(ctx, KindTransaction, "a", []byte("1")))
	require.NoError(t, m.Save(ctx, KindTransaction, "c", []byte("3")))

	got, err := m.List(ctx, KindTransaction)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2", string(got[0]))
	assert.Equal(t, "1", string(got[1]))
	assert.Equal(t, "3", string(got[2]))
}

func TestMemory_OverwriteKeepsPosition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindTransaction, "a", []byte("1")))
	require.NoError(t, m.Save(ctx, KindTransaction, "b", []byte("2")))
	require.NoError(t, m.Save(ctx, KindTransaction, "a", []byte("1-updated")))

	got, err := m.List(ctx, KindTransaction)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1-updated", string(got[0]))
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindAccount, "1010", []byte("x")))
	require.NoError(t, m.Delete(ctx, KindAccount, "1010"))

	_, err := m.Load(ctx, KindAccount, "1010")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing document is not an error.
	assert.NoError(t, m.Delete(ctx, KindAccount, "1010"))
}

func TestMemory_KindsAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindAccount, "x", []byte("account")))
	require.NoError(t, m.Save(ctx, KindPeriod, "x", []byte("period")))

	got, err := m.Load(ctx, KindPeriod, "x")
	require.NoError(t, err)
	assert.Equal(t, "period", string(got))

	accounts, err := m.List(ctx, KindAccount)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KindAccount, "x", []byte("abc")))
	got, err := m.Load(ctx, KindAccount, "x")
	require.NoError(t, err)
	got[0] = 'z'

	again, err := m.Load(ctx, KindAccount, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
