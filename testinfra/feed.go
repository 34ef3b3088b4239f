package testinfra

import (
	"context"
	"errors"
	"procurement/tables"
	"sync/atomic"
)

var ErrFeedDown = errors.New("feed is down")

// BrokenFeed accepts subscriptions but fails every publish.
type BrokenFeed struct {
	*tables.LocalFeed
	attempts int32
}

func NewBrokenFeed() *BrokenFeed {
	return &BrokenFeed{LocalFeed: tables.NewLocalFeed()}
}

func (f *BrokenFeed) Publish(ctx context.Context, c tables.Change) error {
	atomic.AddInt32(&f.attempts, 1)
	return ErrFeedDown
}

func (f *BrokenFeed) Attempts() int {
	return int(atomic.LoadInt32(&f.attempts))
}
