package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledReturnsNoop(t *testing.T) {
	l, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, l)

	r, err := l.Obtain(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	assert.NoError(t, r.Release(context.Background()))
	assert.NoError(t, l.Close())
}

func TestNew_UnreachableRedis(t *testing.T) {
	l, err := New(context.Background(), Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, l)
}
