package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pooledEngine is a RodEngine with a pool of size n and a stubbed tab factory;
// no browser is involved.
func pooledEngine(n int, newPage func() (*rod.Page, error)) *RodEngine {
	return &RodEngine{pagePool: rod.NewPagePool(n), newPage: newPage}
}

func TestRodEngine_AcquireHonoursContext(t *testing.T) {
	held := &rod.Page{}
	created := 0
	e := pooledEngine(1, func() (*rod.Page, error) {
		created++
		return held, nil
	})

	page, err := e.acquirePage(context.Background())
	require.NoError(t, err)
	assert.Same(t, held, page)

	// The only tab is checked out: a cancelled caller must not wait for it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.acquirePage(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = e.acquirePage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// Returned tabs are reused, not recreated.
	e.pagePool.Put(held)
	page, err = e.acquirePage(context.Background())
	require.NoError(t, err)
	assert.Same(t, held, page)
	assert.Equal(t, 1, created)
}

func TestRodEngine_AcquireCreateFailureKeepsSlot(t *testing.T) {
	fail := true
	e := pooledEngine(1, func() (*rod.Page, error) {
		if fail {
			return nil, errors.New("target crashed")
		}
		return &rod.Page{}, nil
	})

	for range 3 {
		_, err := e.acquirePage(context.Background())
		require.EqualError(t, err, "target crashed")
		assert.Len(t, e.pagePool, 1, "slot must go back to the pool")
	}

	fail = false
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	page, err := e.acquirePage(ctx)
	require.NoError(t, err)
	assert.NotNil(t, page)
}
