package ocr

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine tracks close calls.
type fakeEngine struct {
	id     int
	closed atomic.Bool
}

func (e *fakeEngine) Fragments(_ context.Context, _ image.Image) ([]Fragment, error) {
	return nil, nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func countingFactory(created *atomic.Int64) Factory {
	return func() (Engine, error) {
		n := created.Add(1)
		return &fakeEngine{id: int(n)}, nil
	}
}

func TestPool_LazyCreation(t *testing.T) {
	var created atomic.Int64
	p := NewPool(4, countingFactory(&created))
	defer func() { _ = p.Close() }()

	assert.Equal(t, int64(0), created.Load(), "no engine is created before first acquire")

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Load())
	p.Release(e)
}

func TestPool_ReusesReleasedHandles(t *testing.T) {
	var created atomic.Int64
	p := NewPool(4, countingFactory(&created))
	defer func() { _ = p.Close() }()

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(e)

	again, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(again)

	assert.Same(t, e, again)
	assert.Equal(t, int64(1), created.Load(), "a released handle is reused, not recreated")
}

func TestPool_CapacityBlocksAndContextCancels(t *testing.T) {
	var created atomic.Int64
	p := NewPool(1, countingFactory(&created))
	defer func() { _ = p.Close() }()

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), created.Load())

	p.Release(e)
}

func TestPool_DiscardFreesSlot(t *testing.T) {
	var created atomic.Int64
	p := NewPool(1, countingFactory(&created))
	defer func() { _ = p.Close() }()

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)

	fe, ok := e.(*fakeEngine)
	require.True(t, ok)
	p.Discard(e)
	assert.True(t, fe.closed.Load())

	// The freed slot allows a replacement engine.
	replacement, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(replacement)
	assert.Equal(t, int64(2), created.Load())
}

func TestPool_FactoryErrorFreesSlot(t *testing.T) {
	attempts := 0
	p := NewPool(1, func() (Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("engine init failed")
		}
		return &fakeEngine{}, nil
	})
	defer func() { _ = p.Close() }()

	_, err := p.Acquire(context.Background())
	require.Error(t, err)

	// The failed attempt must not leak its slot.
	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(e)
}

func TestPool_CloseClosesIdleHandles(t *testing.T) {
	var created atomic.Int64
	p := NewPool(2, countingFactory(&created))

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(e)

	require.NoError(t, p.Close())

	fe, ok := e.(*fakeEngine)
	require.True(t, ok)
	assert.True(t, fe.closed.Load())

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPool_ReleaseAfterCloseClosesHandle(t *testing.T) {
	p := NewPool(1, func() (Engine, error) { return &fakeEngine{}, nil })

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Close())
	p.Release(e)

	fe, ok := e.(*fakeEngine)
	require.True(t, ok)
	assert.True(t, fe.closed.Load())
}

func TestPool_MinimumSize(t *testing.T) {
	p := NewPool(0, func() (Engine, error) { return &fakeEngine{}, nil })
	defer func() { _ = p.Close() }()

	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(e)
}
