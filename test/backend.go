package test

import (
	"bytes"
	"context"
	"testing"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libopenstorage/lockbox"
)

type backendTest struct {
	b       lockbox.Backend
	service string
}

// RunForBackend exercises the four primitives of b and checks that each
// reports status the way lockbox.Backend requires.
func RunForBackend(b lockbox.Backend, t *testing.T) {
	bt := &backendTest{
		b:       b,
		service: "lockbox_conformance_" + uuid.New(),
	}

	bt.TestLookupMissing(t)
	bt.TestInsert(t)
	bt.TestUpdate(t)
	bt.TestScoping(t)
	bt.TestBinaryData(t)
	bt.TestDelete(t)
}

func (a *backendTest) query(suffix string) lockbox.Query {
	return lockbox.Query{
		Service:       a.service + suffix,
		Accessibility: lockbox.AccessibleAfterFirstUnlock,
	}
}

func (a *backendTest) TestLookupMissing(t *testing.T) {
	_, err := a.b.Lookup(context.Background(), a.query(".missing"))
	assert.ErrorIs(t, err, lockbox.ErrItemNotFound, "Expected Lookup of a missing item to fail with not found")
}

func (a *backendTest) TestInsert(t *testing.T) {
	ctx := context.Background()
	q := a.query(".insert")

	err := a.b.Insert(ctx, q, []byte("value1"))
	require.NoError(t, err, "Unexpected error on Insert")

	data, err := a.b.Lookup(ctx, q)
	require.NoError(t, err, "Expected Lookup to succeed")
	assert.Equal(t, []byte("value1"), data, "Unexpected data")

	err = a.b.Insert(ctx, q, []byte("value2"))
	assert.ErrorIs(t, err, lockbox.ErrDuplicateItem, "Expected Insert over an existing item to fail")

	data, err = a.b.Lookup(ctx, q)
	require.NoError(t, err, "Expected Lookup to succeed")
	assert.Equal(t, []byte("value1"), data, "Duplicate Insert must not change the item")
}

func (a *backendTest) TestUpdate(t *testing.T) {
	ctx := context.Background()
	q := a.query(".insert")

	err := a.b.Update(ctx, q, []byte("value2"))
	require.NoError(t, err, "Unexpected error on Update")

	data, err := a.b.Lookup(ctx, q)
	require.NoError(t, err, "Expected Lookup to succeed")
	assert.Equal(t, []byte("value2"), data, "Unexpected data after Update")

	err = a.b.Update(ctx, a.query(".missing"), []byte("value"))
	assert.ErrorIs(t, err, lockbox.ErrItemNotFound, "Expected Update of a missing item to fail with not found")
}

func (a *backendTest) TestScoping(t *testing.T) {
	ctx := context.Background()
	plain := a.query(".scoped")
	withAccount := plain
	withAccount.Account = "account-" + uuid.New()
	withGroup := plain
	withGroup.AccessGroup = "group-" + uuid.New()

	require.NoError(t, a.b.Insert(ctx, plain, []byte("plain")))
	require.NoError(t, a.b.Insert(ctx, withAccount, []byte("account")),
		"Items differing in account must not collide")
	require.NoError(t, a.b.Insert(ctx, withGroup, []byte("group")),
		"Items differing in access group must not collide")

	for q, want := range map[lockbox.Query]string{
		plain:       "plain",
		withAccount: "account",
		withGroup:   "group",
	} {
		data, err := a.b.Lookup(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, string(data), "Unexpected data for %+v", q)
		require.NoError(t, a.b.Delete(ctx, q))
	}
}

func (a *backendTest) TestBinaryData(t *testing.T) {
	ctx := context.Background()
	q := a.query(".binary")
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	require.NoError(t, a.b.Insert(ctx, q, data))
	got, err := a.b.Lookup(ctx, q)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got), "Binary data did not round trip")

	require.NoError(t, a.b.Update(ctx, q, []byte{}))
	got, err = a.b.Lookup(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, got, "Expected empty data after Update with an empty value")

	require.NoError(t, a.b.Delete(ctx, q))
}

func (a *backendTest) TestDelete(t *testing.T) {
	ctx := context.Background()
	q := a.query(".insert")

	err := a.b.Delete(ctx, q)
	assert.NoError(t, err, "Expected Delete to succeed")

	_, err = a.b.Lookup(ctx, q)
	assert.ErrorIs(t, err, lockbox.ErrItemNotFound, "Unexpected error on Lookup after Delete")

	err = a.b.Delete(ctx, q)
	assert.ErrorIs(t, err, lockbox.ErrItemNotFound, "Expected Delete of a missing item to fail with not found")
}
