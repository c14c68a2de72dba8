package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTry(t *testing.T) {
	require.NoError(t, Try(func() {}))

	err := Try(func() { panic("observer exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer exploded")
}

func TestSafe(t *testing.T) {
	sentinel := errors.New("sentinel")
	assert.ErrorIs(t, Safe(func() error { return sentinel })(), sentinel)
	assert.NoError(t, Safe(func() error { return nil })())
	assert.Error(t, Safe(func() error { panic("boom") })())
}

func TestSafeContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := SafeContext(func(ctx context.Context) error {
		if ctx.Value(key{}) != "v" {
			return errors.New("context not forwarded")
		}
		panic("boom")
	})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
