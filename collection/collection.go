// Package collection keeps an in-memory copy of one remote table in sync with the
// backend: full loads, seeding of empty tables, reloads on change notifications and
// optimistic mutations whose remote half is issued in order in the background.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"procurement/bizerror"
	"procurement/tables"
	"sync"

	"github.com/sirupsen/logrus"
)

const queueSize = 256

type Keyed[K comparable] interface {
	Key() K
}

type Options[K comparable, T Keyed[K]] struct {
	Table string
	// Seed returns the rows inserted when a load finds the table empty.
	Seed  func() []T
	Order *tables.Order
	// Prepend puts added rows first, otherwise they are appended.
	Prepend bool

	NewKey  func() K
	WithKey func(row T, key K) T
	// Prepare applies the defaults of new rows after the key is assigned.
	Prepare func(row T) T
	// Normalize back-fills loaded rows before they replace the cache.
	Normalize func(rows []T) []T

	// Guard is shared by the collections of one group, a private one is created when nil.
	Guard *Guard
}

type Collection[K comparable, T Keyed[K]] struct {
	client tables.Client
	opts   Options[K, T]
	guard  *Guard
	logger *logrus.Entry

	lock      sync.RWMutex
	rows      []T
	loading   bool
	lastError string

	loadLock sync.Mutex

	// mutLock orders cache writes and the queueing of their remote calls
	mutLock sync.Mutex
	closed  bool
	jobs    chan job
	drained chan struct{}

	subLock   sync.Mutex
	sub       *tables.Subscription
	closeOnce sync.Once
}

type job struct {
	ctx     context.Context
	op      string
	pending *Pending
	call    func(ctx context.Context) error
}

func New[K comparable, T Keyed[K]](client tables.Client, opts Options[K, T]) *Collection[K, T] {
	if opts.Guard == nil {
		opts.Guard = NewGuard()
	}
	c := &Collection[K, T]{
		client:  client,
		opts:    opts,
		guard:   opts.Guard,
		logger:  logrus.WithField("table", opts.Table),
		rows:    []T{},
		jobs:    make(chan job, queueSize),
		drained: make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Collection[K, T]) Table() string {
	return c.opts.Table
}

func (c *Collection[K, T]) Guard() *Guard {
	return c.guard
}

// Load replaces the cache with the current content of the table. An empty table is
// seeded first. While the guard is latched Load fails with ErrSchemaNotReady without
// calling the backend, other failures keep the last known cache.
func (c *Collection[K, T]) Load(ctx context.Context) error {
	c.loadLock.Lock()
	defer c.loadLock.Unlock()

	if c.guard.Latched() {
		return fmt.Errorf("%w: %v", bizerror.ErrSchemaNotReady, c.guard.MissingTables())
	}

	c.setLoading(true, "")
	rows, err := c.selectAll(ctx)
	if err == nil && len(rows) == 0 && c.opts.Seed != nil {
		if seeds := c.opts.Seed(); len(seeds) > 0 {
			c.seed(ctx, seeds)
			rows, err = c.selectAll(ctx)
		}
	}
	if err != nil {
		return c.failLoad(err)
	}

	if c.opts.Normalize != nil {
		rows = c.opts.Normalize(rows)
	}
	c.lock.Lock()
	c.rows = rows
	c.loading = false
	c.lock.Unlock()

	cachedRows.WithLabelValues(c.opts.Table).Set(float64(len(rows)))
	loadsTotal.WithLabelValues(c.opts.Table, "success").Inc()
	c.logger.WithField("rows", len(rows)).Debug("table loaded")
	return nil
}

func (c *Collection[K, T]) selectAll(ctx context.Context) ([]T, error) {
	rows := []T{}
	if err := c.client.Select(ctx, c.opts.Table, &rows, tables.Query{Order: c.opts.Order}); err != nil {
		return nil, err
	}
	return rows, nil
}

// seed inserts one row after the other, failures are logged and skipped.
func (c *Collection[K, T]) seed(ctx context.Context, seeds []T) {
	c.logger.WithField("rows", len(seeds)).Info("table is empty, inserting seed rows")
	for i := range seeds {
		row := seeds[i]
		err := c.client.Insert(ctx, c.opts.Table, &row)
		seedInsertsTotal.WithLabelValues(c.opts.Table, outcome(err)).Inc()
		if err != nil {
			c.logger.WithError(err).WithField("key", row.Key()).Warn("failed to insert seed row")
		}
	}
}

func (c *Collection[K, T]) failLoad(err error) error {
	if tables.IsTableMissing(err) {
		c.guard.Latch(c.opts.Table)
		c.setLoading(false, "")
		loadsTotal.WithLabelValues(c.opts.Table, "schema_not_ready").Inc()
		c.logger.WithError(err).Warn("table is missing, setup required")
		return fmt.Errorf("%w: %s", bizerror.ErrSchemaNotReady, c.opts.Table)
	}

	c.setLoading(false, ConnectivityMessage(err))
	loadsTotal.WithLabelValues(c.opts.Table, "failure").Inc()
	c.logger.WithError(err).Error("failed to load table")
	return fmt.Errorf("load %s: %w", c.opts.Table, err)
}

// ConnectivityMessage is what the user sees when a load fails for a reason other than a missing table.
func ConnectivityMessage(err error) string {
	return "failed to reach the database, check the backend address and credentials: " + err.Error()
}

func (c *Collection[K, T]) setLoading(loading bool, lastError string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.loading = loading
	c.lastError = lastError
}

func (c *Collection[K, T]) Loading() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.loading
}

// LastError is the message of the last failed load, empty after a successful one.
func (c *Collection[K, T]) LastError() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastError
}

// Start loads the table and reloads it in full on every change notification until Close.
// The subscription is kept even when the first load fails.
func (c *Collection[K, T]) Start(ctx context.Context) error {
	loadErr := c.Load(ctx)

	sub, err := c.client.Subscribe(ctx, c.opts.Table)
	if err != nil {
		return errors.Join(loadErr, fmt.Errorf("subscribe %s: %w", c.opts.Table, err))
	}
	c.subLock.Lock()
	c.sub = sub
	c.subLock.Unlock()

	watchCtx := context.WithoutCancel(ctx)
	go func() {
		for change := range sub.C {
			c.logger.WithField("change", change.Type).Debug("change notified, reloading")
			if err := c.Load(watchCtx); err != nil {
				c.logger.WithError(err).Debug("reload after change failed")
			}
		}
	}()
	return loadErr
}

// Close stops change handling and waits for queued remote calls to finish.
func (c *Collection[K, T]) Close() {
	c.closeOnce.Do(func() {
		c.subLock.Lock()
		if c.sub != nil {
			c.sub.Close()
		}
		c.subLock.Unlock()

		c.mutLock.Lock()
		c.closed = true
		close(c.jobs)
		c.mutLock.Unlock()

		<-c.drained
	})
}

func (c *Collection[K, T]) Get(key K) (T, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	for _, r := range c.rows {
		if r.Key() == key {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// List returns a copy of the cached sequence. Rows are shared, callers must not modify them.
func (c *Collection[K, T]) List() []T {
	c.lock.RLock()
	defer c.lock.RUnlock()
	rows := make([]T, len(c.rows))
	copy(rows, c.rows)
	return rows
}

// Add assigns a key, applies defaults and caches row before its insert is issued.
func (c *Collection[K, T]) Add(ctx context.Context, row T) (T, *Pending) {
	if c.opts.NewKey != nil && c.opts.WithKey != nil {
		row = c.opts.WithKey(row, c.opts.NewKey())
	}
	if c.opts.Prepare != nil {
		row = c.opts.Prepare(row)
	}

	c.mutLock.Lock()
	defer c.mutLock.Unlock()

	c.lock.Lock()
	if c.opts.Prepend {
		c.rows = append([]T{row}, c.rows...)
	} else {
		c.rows = append(c.rows, row)
	}
	c.lock.Unlock()

	remote := row
	return row, c.enqueue(ctx, "insert", func(ctx context.Context) error {
		return c.client.Insert(ctx, c.opts.Table, &remote)
	})
}

// Update merges fields into the cached row, when there is one, and issues the remote
// update by key either way. The id column is never updated.
func (c *Collection[K, T]) Update(ctx context.Context, key K, fields tables.Fields) (*Pending, error) {
	patch := tables.Fields{}
	for k, v := range fields {
		if k != "id" {
			patch[k] = v
		}
	}

	c.mutLock.Lock()
	defer c.mutLock.Unlock()

	c.lock.Lock()
	for i := range c.rows {
		if c.rows[i].Key() != key {
			continue
		}
		merged, err := MergeFields(c.rows[i], patch)
		if err != nil {
			c.lock.Unlock()
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		c.rows[i] = merged
		break
	}
	c.lock.Unlock()

	if len(patch) == 0 {
		return settled(nil), nil
	}
	return c.enqueue(ctx, "update", func(ctx context.Context) error {
		return c.client.Update(ctx, c.opts.Table, patch, tables.ByID(key))
	}), nil
}

func (c *Collection[K, T]) Delete(ctx context.Context, key K) *Pending {
	c.mutLock.Lock()
	defer c.mutLock.Unlock()

	c.lock.Lock()
	kept := make([]T, 0, len(c.rows))
	for _, r := range c.rows {
		if r.Key() != key {
			kept = append(kept, r)
		}
	}
	c.rows = kept
	c.lock.Unlock()

	return c.enqueue(ctx, "delete", func(ctx context.Context) error {
		return c.client.Delete(ctx, c.opts.Table, tables.ByID(key))
	})
}

// ReplaceAll swaps the cache for rows and upserts them one by one in order.
func (c *Collection[K, T]) ReplaceAll(ctx context.Context, rows []T) *Pending {
	replacement := make([]T, len(rows))
	copy(replacement, rows)

	c.mutLock.Lock()
	defer c.mutLock.Unlock()

	c.lock.Lock()
	c.rows = replacement
	c.lock.Unlock()

	upserts := make([]T, len(rows))
	copy(upserts, rows)
	return c.enqueue(ctx, "upsert", func(ctx context.Context) error {
		var errs []error
		for i := range upserts {
			if err := c.client.Upsert(ctx, c.opts.Table, &upserts[i]); err != nil {
				errs = append(errs, fmt.Errorf("upsert %v: %w", upserts[i].Key(), err))
			}
		}
		return errors.Join(errs...)
	})
}

// enqueue must be called with mutLock held.
func (c *Collection[K, T]) enqueue(ctx context.Context, op string, call func(ctx context.Context) error) *Pending {
	if c.closed {
		return settled(ErrClosed)
	}
	p := newPending()
	c.jobs <- job{ctx: context.WithoutCancel(ctx), op: op, pending: p, call: call}
	return p
}

func (c *Collection[K, T]) dispatch() {
	defer close(c.drained)
	for j := range c.jobs {
		if c.guard.Latched() {
			j.pending.resolve(bizerror.ErrSchemaNotReady)
			continue
		}
		err := j.call(j.ctx)
		remoteMutationsTotal.WithLabelValues(c.opts.Table, j.op, outcome(err)).Inc()
		if err != nil {
			c.logger.WithError(err).WithField("op", j.op).Warn("remote mutation failed, cache stays optimistic until the next reload")
		}
		j.pending.resolve(err)
	}
}

// MergeFields overlays column values onto row through its json form.
func MergeFields[T any](row T, fields tables.Fields) (T, error) {
	var merged T
	data, err := json.Marshal(row)
	if err != nil {
		return merged, err
	}
	columns := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &columns); err != nil {
		return merged, err
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return merged, err
		}
		columns[k] = raw
	}
	if data, err = json.Marshal(columns); err != nil {
		return merged, err
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return merged, fmt.Errorf("fields do not fit the row: %w", err)
	}
	return merged, nil
}
