package collection

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("collection closed")

// Pending is the outcome of the remote half of an optimistic mutation. The local
// half has already been applied when a Pending is handed out.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func settled(err error) *Pending {
	p := newPending()
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the remote call finished or ctx is done. Giving up waiting
// does not cancel the remote call.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
