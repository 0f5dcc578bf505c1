package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Pool.Run after Close.
var ErrPoolClosed = errors.New("session pool closed")

// Pool holds independently initialized sessions. A caller checks one out for
// the duration of a single forward pass, so no session ever runs concurrently
// with itself. A pool of size 1 serializes all inference.
type Pool struct {
	sessions chan Session
	all      []Session

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewPool opens size sessions with open. If any fails, the ones already
// opened are closed.
func NewPool(size int, open func() (Session, error)) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pool size %d", size)
	}

	p := &Pool{
		sessions: make(chan Session, size),
		all:      make([]Session, 0, size),
		done:     make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		s, err := open()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to open session %d/%d: %w", i+1, size, err)
		}
		p.all = append(p.all, s)
		p.sessions <- s
	}
	return p, nil
}

// Size is the number of sessions in the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Run executes input on the next free session, waiting for one until ctx is
// done or the pool is closed.
func (p *Pool) Run(ctx context.Context, input []float32) ([]float32, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case s := <-p.sessions:
		defer func() { p.sessions <- s }()
		select {
		case <-p.done:
			return nil, ErrPoolClosed
		default:
		}
		return s.Run(input)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolClosed
	}
}

// Close closes every session. Callers waiting for a session get
// ErrPoolClosed at once; calls already running finish first.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		var errs []error
		for range p.all {
			s := <-p.sessions
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
