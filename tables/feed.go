package tables

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ChangeInsert = ChangeType("INSERT")
	ChangeUpdate = ChangeType("UPDATE")
	ChangeDelete = ChangeType("DELETE")
)

type ChangeType string

// Change notifies that a table was mutated, by this process or by another one.
type Change struct {
	Table     string     `json:"table"`
	Type      ChangeType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewChange(table string, t ChangeType) Change {
	return Change{Table: table, Type: t, Timestamp: time.Now()}
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Notify publishes c after a committed write. A failed publish only delays
// other processes until their next reload, so it is logged and not returned.
func Notify(ctx context.Context, p Publisher, c Change) {
	if err := p.Publish(ctx, c); err != nil {
		logrus.WithError(err).WithField("table", c.Table).WithField("change", c.Type).
			Warn("failed to publish change")
	}
}

// Feed fans change notifications out to per-table subscribers.
type Feed interface {
	Publisher
	Subscribe(ctx context.Context, table string) (*Subscription, error)
}

// Subscription delivers changes of one table on C until Close is called.
// Notifications arriving while one is still unread are coalesced: every change
// triggers a full reload, so one pending signal is as good as many.
type Subscription struct {
	C <-chan Change

	closeFunc func()
	once      sync.Once
}

func NewSubscription(c <-chan Change, closeFunc func()) *Subscription {
	return &Subscription{C: c, closeFunc: closeFunc}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.closeFunc != nil {
			s.closeFunc()
		}
	})
}

// Offer performs the coalescing send used by feeds.
func Offer(ch chan Change, c Change) bool {
	select {
	case ch <- c:
		return true
	default:
		return false
	}
}

// LocalFeed is the in-process feed.
type LocalFeed struct {
	lock        sync.Mutex
	subscribers map[string]map[chan Change]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subscribers: map[string]map[chan Change]struct{}{}}
}

func (f *LocalFeed) Publish(ctx context.Context, c Change) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for ch := range f.subscribers[c.Table] {
		if !Offer(ch, c) {
			logrus.WithField("table", c.Table).Debug("change coalesced with a pending notification")
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(ctx context.Context, table string) (*Subscription, error) {
	ch := make(chan Change, 1)

	f.lock.Lock()
	set, ok := f.subscribers[table]
	if !ok {
		set = map[chan Change]struct{}{}
		f.subscribers[table] = set
	}
	set[ch] = struct{}{}
	f.lock.Unlock()

	return NewSubscription(ch, func() {
		f.lock.Lock()
		defer f.lock.Unlock()
		delete(f.subscribers[table], ch)
		close(ch)
	}), nil
}

func (f *LocalFeed) SubscriberCount(table string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.subscribers[table])
}
