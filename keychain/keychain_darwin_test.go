//go:build darwin

package keychain

import (
	"context"
	"errors"
	"testing"

	gokeychain "github.com/keybase/go-keychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libopenstorage/lockbox"
)

func stubPrimitives(t *testing.T) {
	origQuery, origAdd, origUpdate, origDelete := queryItem, addItem, updateItem, deleteItem
	t.Cleanup(func() {
		queryItem, addItem, updateItem, deleteItem = origQuery, origAdd, origUpdate, origDelete
	})
}

func TestConvertErr(t *testing.T) {
	assert.Nil(t, convertErr(nil))
	assert.Equal(t, lockbox.ErrItemNotFound, convertErr(gokeychain.ErrorItemNotFound))
	assert.Equal(t, lockbox.ErrDuplicateItem, convertErr(gokeychain.ErrorDuplicateItem))
	assert.True(t, errors.Is(convertErr(gokeychain.ErrorInteractionNotAllowed), lockbox.ErrInteractionNotAllowed))

	other := convertErr(gokeychain.ErrorAuthFailed)
	assert.Error(t, other)
	assert.False(t, errors.Is(other, lockbox.ErrItemNotFound))

	plain := errors.New("boom")
	assert.Equal(t, plain, convertErr(plain))
}

func TestAccessibleMapping(t *testing.T) {
	assert.Equal(t, gokeychain.AccessibleAfterFirstUnlock, accessible(lockbox.AccessibleAfterFirstUnlock))
	assert.Equal(t, gokeychain.AccessibleWhenUnlocked, accessible(lockbox.AccessibleWhenUnlocked))
	assert.Equal(t, gokeychain.AccessibleWhenUnlockedThisDeviceOnly, accessible(lockbox.AccessibleWhenUnlockedThisDeviceOnly))
	assert.Equal(t, gokeychain.AccessibleAccessibleAlwaysThisDeviceOnly, accessible(lockbox.AccessibleAlwaysThisDeviceOnly))
}

func TestLookupStatus(t *testing.T) {
	stubPrimitives(t)
	b, err := New(nil)
	require.NoError(t, err)
	q := lockbox.Query{Service: "com.libopenstorage.lockbox.test"}

	queryItem = func(gokeychain.Item) ([]gokeychain.QueryResult, error) { return nil, nil }
	_, err = b.Lookup(context.Background(), q)
	assert.Equal(t, lockbox.ErrItemNotFound, err)

	queryItem = func(gokeychain.Item) ([]gokeychain.QueryResult, error) {
		return nil, gokeychain.ErrorInteractionNotAllowed
	}
	_, err = b.Lookup(context.Background(), q)
	assert.ErrorIs(t, err, lockbox.ErrInteractionNotAllowed)

	queryItem = func(gokeychain.Item) ([]gokeychain.QueryResult, error) {
		return []gokeychain.QueryResult{{Data: []byte("secret")}}, nil
	}
	data, err := b.Lookup(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), data)
}

func TestWriteStatus(t *testing.T) {
	stubPrimitives(t)
	b, err := New(map[string]interface{}{KeychainLabelKey: "lockbox test"})
	require.NoError(t, err)
	q := lockbox.Query{Service: "com.libopenstorage.lockbox.test"}

	addItem = func(gokeychain.Item) error { return gokeychain.ErrorDuplicateItem }
	assert.Equal(t, lockbox.ErrDuplicateItem, b.Insert(context.Background(), q, []byte("v")))

	updateItem = func(gokeychain.Item, gokeychain.Item) error { return gokeychain.ErrorItemNotFound }
	assert.Equal(t, lockbox.ErrItemNotFound, b.Update(context.Background(), q, []byte("v")))

	deleteItem = func(gokeychain.Item) error { return nil }
	assert.NoError(t, b.Delete(context.Background(), q))
}
