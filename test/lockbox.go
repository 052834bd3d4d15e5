package test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libopenstorage/lockbox"
)

type lockboxTest struct {
	b         lockbox.Backend
	namespace string
}

// RunForLockbox checks the Lockbox contract on top of b: round trips,
// deletion, namespace isolation, handles sharing a namespace and serialized
// concurrent writes.
func RunForLockbox(b lockbox.Backend, t *testing.T) {
	lt := &lockboxTest{
		b:         b,
		namespace: "lockbox_test_" + uuid.New(),
	}

	lt.TestRoundTrip(t)
	lt.TestDeleteWithNil(t)
	lt.TestGetNeverWritten(t)
	lt.TestNamespaceIsolation(t)
	lt.TestSharedNamespace(t)
	lt.TestConcurrentSet(t)
}

func (a *lockboxTest) newLockbox(t *testing.T, namespace string) *lockbox.Lockbox {
	lb, err := lockbox.New(a.b, lockbox.Config{Namespace: namespace})
	require.NoError(t, err, "Unexpected error creating lockbox")
	return lb
}

func (a *lockboxTest) TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	lb := a.newLockbox(t, a.namespace)

	for _, value := range [][]byte{[]byte("v"), []byte("hello, world"), {0, 1, 2, 254, 255}} {
		require.NoError(t, lb.Set(ctx, "roundtrip", value))
		got, err := lb.Get(ctx, "roundtrip")
		require.NoError(t, err)
		assert.Equal(t, value, got, "Unexpected data after Set")

		// A fresh lockbox has an empty cache and must read from the backend.
		got, err = a.newLockbox(t, a.namespace).Get(ctx, "roundtrip")
		require.NoError(t, err)
		assert.Equal(t, value, got, "Unexpected data read from the backend")
	}
	require.NoError(t, lb.Set(ctx, "roundtrip", nil))
}

func (a *lockboxTest) TestDeleteWithNil(t *testing.T) {
	ctx := context.Background()
	lb := a.newLockbox(t, a.namespace)

	require.NoError(t, lb.Set(ctx, "deleted", []byte("value")))
	require.NoError(t, lb.Set(ctx, "deleted", nil))

	got, err := lb.Get(ctx, "deleted")
	assert.NoError(t, err)
	assert.Nil(t, got, "Expected absent after Set with nil")

	got, err = a.newLockbox(t, a.namespace).Get(ctx, "deleted")
	assert.NoError(t, err)
	assert.Nil(t, got, "Expected the backend item to be deleted")
}

func (a *lockboxTest) TestGetNeverWritten(t *testing.T) {
	lb := a.newLockbox(t, a.namespace)
	got, err := lb.Get(context.Background(), "never-written-"+uuid.New())
	assert.NoError(t, err, "Get of a missing key must not fail")
	assert.Nil(t, got)
}

func (a *lockboxTest) TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	first := a.newLockbox(t, a.namespace+".first")
	second := a.newLockbox(t, a.namespace+".second")

	require.NoError(t, first.Set(ctx, "shared", []byte("first")))
	got, err := second.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Nil(t, got, "Namespaces must not observe each other's keys")

	require.NoError(t, second.Set(ctx, "shared", []byte("second")))
	got, err = a.newLockbox(t, a.namespace+".first").Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, first.Delete(ctx, "shared"))
	require.NoError(t, second.Delete(ctx, "shared"))
}

func (a *lockboxTest) TestSharedNamespace(t *testing.T) {
	ctx := context.Background()
	reader := a.newLockbox(t, a.namespace)
	writer := a.newLockbox(t, a.namespace)

	got, err := reader.Get(ctx, "handles")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, writer.Set(ctx, "handles", []byte("v")))
	got, err = reader.Get(ctx, "handles")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got, "A write through one handle must be seen by another")

	require.NoError(t, writer.Delete(ctx, "handles"))
	got, err = reader.Get(ctx, "handles")
	require.NoError(t, err)
	assert.Nil(t, got, "A delete through one handle must be seen by another")
}

func (a *lockboxTest) TestConcurrentSet(t *testing.T) {
	ctx := context.Background()
	const writers = 16
	submitted := make(map[string]bool, writers)
	for i := 0; i < writers; i++ {
		submitted[fmt.Sprintf("value-%02d-%s", i, uuid.New())] = true
	}

	var wg sync.WaitGroup
	for value := range submitted {
		wg.Add(1)
		go func(value string) {
			defer wg.Done()
			lb := a.newLockbox(t, a.namespace)
			assert.NoError(t, lb.Set(ctx, "contended", []byte(value)))
		}(value)
	}
	wg.Wait()

	got, err := a.newLockbox(t, a.namespace).Get(ctx, "contended")
	require.NoError(t, err)
	assert.True(t, submitted[string(got)], "Final value %q is not one of the submitted values", got)
	require.NoError(t, a.newLockbox(t, a.namespace).Delete(ctx, "contended"))
}
