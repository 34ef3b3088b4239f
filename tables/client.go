package tables

import (
	"context"
)

// Client is the generic query interface over named remote tables.
// Rows travel as structs whose json names are the column names of the table.
type Client interface {
	// Select decodes the matching rows into dest, which must be a pointer to a slice.
	Select(ctx context.Context, table string, dest interface{}, q Query) error
	// Insert and Upsert take a pointer to a row.
	Insert(ctx context.Context, table string, row interface{}) error
	Update(ctx context.Context, table string, fields Fields, filter Filter) error
	Delete(ctx context.Context, table string, filter Filter) error
	Upsert(ctx context.Context, table string, row interface{}) error

	Subscribe(ctx context.Context, table string) (*Subscription, error)
}

// Filter matches rows by column equality, all conditions must hold.
type Filter map[string]interface{}

// Fields is a partial row keyed by column name.
type Fields map[string]interface{}

type Order struct {
	Column     string
	Descending bool
}

type Query struct {
	Filter Filter
	Order  *Order
}

func ByID(id interface{}) Filter {
	return Filter{"id": id}
}
