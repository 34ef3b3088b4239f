package testinfra

import (
	"context"
	"procurement/tables"
	"sync"
)

const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpUpsert = "upsert"
)

type Call struct {
	Op     string
	Table  string
	Filter tables.Filter
	Fields tables.Fields
}

// RecordingClient wraps a client, records every call and can fail or hold chosen ones.
type RecordingClient struct {
	tables.Client

	lock     sync.Mutex
	calls    []Call
	failures map[string]error
	gates    map[string]chan struct{}
}

func NewRecordingClient(delegate tables.Client) *RecordingClient {
	return &RecordingClient{Client: delegate, failures: map[string]error{}, gates: map[string]chan struct{}{}}
}

func opKey(op, table string) string {
	return op + ":" + table
}

// FailOn makes every op on table fail with err until cleared with a nil err.
func (c *RecordingClient) FailOn(op, table string, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err == nil {
		delete(c.failures, opKey(op, table))
		return
	}
	c.failures[opKey(op, table)] = err
}

// Hold blocks every op on table until the returned release is called.
func (c *RecordingClient) Hold(op, table string) (release func()) {
	gate := make(chan struct{})
	c.lock.Lock()
	c.gates[opKey(op, table)] = gate
	c.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lock.Lock()
			delete(c.gates, opKey(op, table))
			c.lock.Unlock()
			close(gate)
		})
	}
}

func (c *RecordingClient) Calls() []Call {
	c.lock.Lock()
	defer c.lock.Unlock()
	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}

func (c *RecordingClient) Count(op, table string) int {
	n := 0
	for _, call := range c.Calls() {
		if call.Op == op && call.Table == table {
			n++
		}
	}
	return n
}

func (c *RecordingClient) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calls = nil
}

func (c *RecordingClient) record(call Call) error {
	c.lock.Lock()
	c.calls = append(c.calls, call)
	gate := c.gates[opKey(call.Op, call.Table)]
	c.lock.Unlock()

	if gate != nil {
		<-gate
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failures[opKey(call.Op, call.Table)]
}

func (c *RecordingClient) Select(ctx context.Context, table string, dest interface{}, q tables.Query) error {
	if err := c.record(Call{Op: OpSelect, Table: table, Filter: q.Filter}); err != nil {
		return err
	}
	return c.Client.Select(ctx, table, dest, q)
}

func (c *RecordingClient) Insert(ctx context.Context, table string, row interface{}) error {
	if err := c.record(Call{Op: OpInsert, Table: table}); err != nil {
		return err
	}
	return c.Client.Insert(ctx, table, row)
}

func (c *RecordingClient) Update(ctx context.Context, table string, fields tables.Fields, filter tables.Filter) error {
	if err := c.record(Call{Op: OpUpdate, Table: table, Fields: fields, Filter: filter}); err != nil {
		return err
	}
	return c.Client.Update(ctx, table, fields, filter)
}

func (c *RecordingClient) Delete(ctx context.Context, table string, filter tables.Filter) error {
	if err := c.record(Call{Op: OpDelete, Table: table, Filter: filter}); err != nil {
		return err
	}
	return c.Client.Delete(ctx, table, filter)
}

func (c *RecordingClient) Upsert(ctx context.Context, table string, row interface{}) error {
	if err := c.record(Call{Op: OpUpsert, Table: table}); err != nil {
		return err
	}
	return c.Client.Upsert(ctx, table, row)
}
