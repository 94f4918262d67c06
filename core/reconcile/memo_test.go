package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemo(t *testing.T) {
	ctx := context.Background()
	var memo Memo[string]
	var loads atomic.Int32

	load := func(context.Context) (string, error) {
		loads.Add(1)
		return "sp_standard", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := memo.Get(ctx, "P1", load)
			assert.NoError(t, err)
			assert.Equal(t, "sp_standard", v)
		}()
	}
	wg.Wait()

	v, err := memo.Get(ctx, "P1", load)
	assert.NoError(t, err)
	assert.Equal(t, "sp_standard", v)
	assert.LessOrEqual(t, loads.Load(), int32(20))
	assert.GreaterOrEqual(t, loads.Load(), int32(1))

	before := loads.Load()
	_, _ = memo.Get(ctx, "P1", load)
	assert.Equal(t, before, loads.Load())

	t.Run("Errors are not cached", func(t *testing.T) {
		var m Memo[int]
		_, err := m.Get(ctx, "k", func(context.Context) (int, error) { return 0, errors.New("down") })
		assert.Error(t, err)

		v, err := m.Get(ctx, "k", func(context.Context) (int, error) { return 7, nil })
		assert.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("Reset", func(t *testing.T) {
		memo.Reset()
		before := loads.Load()
		_, _ = memo.Get(ctx, "P1", load)
		assert.Equal(t, before+1, loads.Load())
	})
}
