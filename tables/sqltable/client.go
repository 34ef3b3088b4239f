// Package sqltable serves the table client contract from a relational database through gorm.
package sqltable

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"procurement/persistence"
	"procurement/tables"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
)

const (
	mysqlNoSuchTable    = 1146
	mysqlDuplicateEntry = 1062

	codeUndefinedColumn = "42703"
)

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client publishes a change to its feed after every write that touched rows. Writes
// made by other processes are only seen through a shared feed such as redisfeed.
type Client struct {
	ds   *persistence.DataSourceManager
	feed tables.Feed
}

func New(ds *persistence.DataSourceManager, feed tables.Feed) *Client {
	if feed == nil {
		feed = tables.NewLocalFeed()
	}
	return &Client{ds: ds, feed: feed}
}

func (c *Client) Select(ctx context.Context, table string, dest interface{}, q tables.Query) error {
	db := c.ds.GormDB(ctx).Table(table)
	where, args, err := whereClause(db, q.Filter)
	if err != nil {
		return err
	}
	if where != "" {
		db = db.Where(where, args...)
	}
	if q.Order != nil {
		if !columnPattern.MatchString(q.Order.Column) {
			return badColumn(q.Order.Column)
		}
		order := db.Dialect().Quote(q.Order.Column)
		if q.Order.Descending {
			order += " DESC"
		}
		db = db.Order(order)
	}
	if err := db.Find(dest).Error; err != nil {
		return classify(table, err)
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, table string, row interface{}) error {
	if err := c.ds.GormDB(ctx).Table(table).Create(row).Error; err != nil {
		return classify(table, err)
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeInsert))
	return nil
}

func (c *Client) Update(ctx context.Context, table string, fields tables.Fields, filter tables.Filter) error {
	if len(fields) == 0 {
		return nil
	}
	db := c.ds.GormDB(ctx)

	columns := make([]string, 0, len(fields))
	for k := range fields {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	sets := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns)+len(filter))
	for _, col := range columns {
		if !columnPattern.MatchString(col) {
			return badColumn(col)
		}
		v, err := columnValue(fields[col])
		if err != nil {
			return &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
		}
		sets = append(sets, db.Dialect().Quote(col)+" = ?")
		args = append(args, v)
	}
	where, whereArgs, err := whereClause(db, filter)
	if err != nil {
		return err
	}

	stmt := "UPDATE " + db.Dialect().Quote(table) + " SET " + strings.Join(sets, ", ")
	if where != "" {
		stmt += " WHERE " + where
		args = append(args, whereArgs...)
	}
	result := db.Exec(stmt, args...)
	if result.Error != nil {
		return classify(table, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeUpdate))
	return nil
}

func (c *Client) Delete(ctx context.Context, table string, filter tables.Filter) error {
	db := c.ds.GormDB(ctx)
	where, args, err := whereClause(db, filter)
	if err != nil {
		return err
	}
	stmt := "DELETE FROM " + db.Dialect().Quote(table)
	if where != "" {
		stmt += " WHERE " + where
	}
	result := db.Exec(stmt, args...)
	if result.Error != nil {
		return classify(table, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeDelete))
	return nil
}

// Upsert updates the row with the same primary key or inserts it.
func (c *Client) Upsert(ctx context.Context, table string, row interface{}) error {
	if err := c.ds.GormDB(ctx).Table(table).Save(row).Error; err != nil {
		return classify(table, err)
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeUpdate))
	return nil
}

func (c *Client) Subscribe(ctx context.Context, table string) (*tables.Subscription, error) {
	return c.feed.Subscribe(ctx, table)
}

func whereClause(db *gorm.DB, filter tables.Filter) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	columns := make([]string, 0, len(filter))
	for k := range filter {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		if !columnPattern.MatchString(col) {
			return "", nil, badColumn(col)
		}
		v, err := columnValue(filter[col])
		if err != nil {
			return "", nil, &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
		}
		conds = append(conds, db.Dialect().Quote(col)+" = ?")
		args = append(args, v)
	}
	return strings.Join(conds, " AND "), args, nil
}

// columnValue stores structured values in their json form, like the TEXT columns of the models.
func columnValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, []byte:
		return v, nil
	case json.Number:
		return t.String(), nil
	case driver.Valuer:
		return t.Value()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return v, nil
}

func badColumn(col string) *tables.Error {
	return &tables.Error{Code: codeUndefinedColumn, Message: fmt.Sprintf("invalid column name %q", col)}
}

// classify maps driver errors to the backend error codes the collections inspect.
func classify(table string, err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlNoSuchTable:
			return &tables.Error{Code: tables.CodeUndefinedTable, Message: mysqlErr.Message, Cause: err}
		case mysqlDuplicateEntry:
			return &tables.Error{Code: tables.CodeUniqueViolation, Message: mysqlErr.Message, Cause: err}
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return &tables.Error{Code: tables.CodeUndefinedTable, Message: fmt.Sprintf(`relation "%s" does not exist`, table), Cause: err}
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &tables.Error{Code: tables.CodeUniqueViolation, Message: msg, Cause: err}
	}
	return &tables.Error{Code: tables.CodeBackend, Message: msg, Cause: err}
}
