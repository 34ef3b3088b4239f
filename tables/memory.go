package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type record map[string]interface{}

// MemoryClient keeps tables in process memory. Tables must be created before use,
// a call against an absent table fails the way the managed backend does.
type MemoryClient struct {
	mu     sync.RWMutex
	tables map[string][]record
	feed   Feed
}

func NewMemoryClient(feed Feed, tables ...string) *MemoryClient {
	if feed == nil {
		feed = NewLocalFeed()
	}
	c := &MemoryClient{tables: map[string][]record{}, feed: feed}
	c.CreateTable(tables...)
	return c
}

func (c *MemoryClient) CreateTable(tables ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tables {
		if _, ok := c.tables[t]; !ok {
			c.tables[t] = []record{}
		}
	}
}

func (c *MemoryClient) DropTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, table)
}

func (c *MemoryClient) Feed() Feed {
	return c.feed
}

func (c *MemoryClient) Select(ctx context.Context, table string, dest interface{}, q Query) error {
	c.mu.RLock()
	rows, ok := c.tables[table]
	if !ok {
		c.mu.RUnlock()
		return MissingTable(table)
	}
	filter, err := toRecord(q.Filter)
	if err != nil {
		c.mu.RUnlock()
		return badRequest(err)
	}
	matched := []record{}
	for _, r := range rows {
		if r.matches(filter) {
			matched = append(matched, r)
		}
	}
	data, err := encodeRows(matched, q.Order)
	c.mu.RUnlock()
	if err != nil {
		return badRequest(err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return badRequest(err)
	}
	return nil
}

// encodeRows sorts and serializes matched rows. The records are shared with
// the table, so callers hold the client lock.
func encodeRows(matched []record, order *Order) ([]byte, error) {
	if order != nil {
		col, desc := order.Column, order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return less(matched[j][col], matched[i][col])
			}
			return less(matched[i][col], matched[j][col])
		})
	}

	return json.Marshal(matched)
}

func (c *MemoryClient) Insert(ctx context.Context, table string, row interface{}) error {
	r, err := toRecord(row)
	if err != nil {
		return badRequest(err)
	}

	c.mu.Lock()
	rows, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return MissingTable(table)
	}
	for _, existing := range rows {
		if valueEqual(existing["id"], r["id"]) {
			c.mu.Unlock()
			return &Error{Code: CodeUniqueViolation, Message: fmt.Sprintf(`duplicate key value violates unique constraint "%s_pkey"`, table)}
		}
	}
	c.tables[table] = append(rows, r)
	c.mu.Unlock()

	Notify(ctx, c.feed, NewChange(table, ChangeInsert))
	return nil
}

func (c *MemoryClient) Update(ctx context.Context, table string, fields Fields, filter Filter) error {
	patch, err := toRecord(fields)
	if err != nil {
		return badRequest(err)
	}
	cond, err := toRecord(filter)
	if err != nil {
		return badRequest(err)
	}

	c.mu.Lock()
	rows, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return MissingTable(table)
	}
	updated := 0
	for i, r := range rows {
		if r.matches(cond) {
			patched := make(record, len(r)+len(patch))
			for k, v := range r {
				patched[k] = v
			}
			for k, v := range patch {
				patched[k] = v
			}
			rows[i] = patched
			updated++
		}
	}
	c.mu.Unlock()

	if updated == 0 {
		return nil
	}
	Notify(ctx, c.feed, NewChange(table, ChangeUpdate))
	return nil
}

func (c *MemoryClient) Delete(ctx context.Context, table string, filter Filter) error {
	cond, err := toRecord(filter)
	if err != nil {
		return badRequest(err)
	}

	c.mu.Lock()
	rows, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return MissingTable(table)
	}
	kept := make([]record, 0, len(rows))
	for _, r := range rows {
		if !r.matches(cond) {
			kept = append(kept, r)
		}
	}
	c.tables[table] = kept
	c.mu.Unlock()

	if len(kept) == len(rows) {
		return nil
	}
	Notify(ctx, c.feed, NewChange(table, ChangeDelete))
	return nil
}

func (c *MemoryClient) Upsert(ctx context.Context, table string, row interface{}) error {
	r, err := toRecord(row)
	if err != nil {
		return badRequest(err)
	}

	c.mu.Lock()
	rows, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return MissingTable(table)
	}
	change := ChangeInsert
	for i, existing := range rows {
		if valueEqual(existing["id"], r["id"]) {
			rows[i] = r
			change = ChangeUpdate
			break
		}
	}
	if change == ChangeInsert {
		c.tables[table] = append(rows, r)
	}
	c.mu.Unlock()

	Notify(ctx, c.feed, NewChange(table, change))
	return nil
}

func (c *MemoryClient) Subscribe(ctx context.Context, table string) (*Subscription, error) {
	return c.feed.Subscribe(ctx, table)
}

func badRequest(err error) *Error {
	return &Error{Code: "PGRST102", Message: err.Error(), Cause: err}
}

func toRecord(v interface{}) (record, error) {
	r := record{}
	if v == nil {
		return r, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r record) matches(filter record) bool {
	for k, v := range filter {
		if !valueEqual(r[k], v) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func less(a, b interface{}) bool {
	na, okA := a.(json.Number)
	nb, okB := b.(json.Number)
	if okA && okB {
		ia, errA := na.Int64()
		ib, errB := nb.Int64()
		if errA == nil && errB == nil {
			return ia < ib
		}
		fa, _ := na.Float64()
		fb, _ := nb.Float64()
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
