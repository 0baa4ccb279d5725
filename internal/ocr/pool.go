package ocr

import (
	"context"
	"sync"
)

// Pool is a bounded set of engine handles. Handles are created lazily up to
// the pool size and reused across requests. Acquire honors context
// cancellation while waiting for a free handle.
type Pool struct {
	factory Factory
	idle    chan Engine
	slots   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool of at most size handles built by factory.
func NewPool(size int, factory Factory) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		factory: factory,
		idle:    make(chan Engine, size),
		slots:   make(chan struct{}, size),
	}
}

// Acquire returns an idle engine handle, creating one if the pool is below
// capacity. It blocks until a handle frees up or the context expires.
func (p *Pool) Acquire(ctx context.Context) (Engine, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrNotConfigured
	}
	p.mu.Unlock()

	select {
	case e := <-p.idle:
		return e, nil
	default:
	}

	select {
	case e := <-p.idle:
		return e, nil
	case p.slots <- struct{}{}:
		e, err := p.factory()
		if err != nil {
			<-p.slots
			return nil, err
		}
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a handle to the pool for reuse.
func (p *Pool) Release(e Engine) {
	if e == nil {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		_ = e.Close()
		return
	}
	select {
	case p.idle <- e:
	default:
		// Pool already holds its full complement; drop the extra handle.
		_ = e.Close()
	}
}

// Discard drops a handle that failed, freeing its slot so a replacement can
// be created.
func (p *Pool) Discard(e Engine) {
	if e == nil {
		return
	}
	_ = e.Close()
	select {
	case <-p.slots:
	default:
	}
}

// Close shuts down the pool and closes all idle handles. Handles still
// checked out are closed when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for {
		select {
		case e := <-p.idle:
			if err := e.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}
