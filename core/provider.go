package core

import (
	"context"
	"fmt"
)

// SchemaType is an ADO SchemaEnum value.
type SchemaType int

const (
	SchemaProviderSpecific SchemaType = -1
	SchemaCatalogs         SchemaType = 1
	SchemaColumns          SchemaType = 4
	SchemaIndexes          SchemaType = 12
	SchemaSchemata         SchemaType = 17
	SchemaTables           SchemaType = 20
	SchemaViews            SchemaType = 23
	SchemaForeignKeys      SchemaType = 27
	SchemaPrimaryKeys      SchemaType = 28
)

// SchemaQuery is an OpenSchema request. Criteria are positional
// restrictions; a nil entry means "no restriction".
type SchemaQuery struct {
	Type        SchemaType
	Criteria    []any
	ID          string
	HasCriteria bool
	HasID       bool
}

// Restriction returns criterion i as a string, or "" when unrestricted.
// Non-string criteria are rendered with fmt.Sprint.
func (q SchemaQuery) Restriction(i int) string {
	if i >= len(q.Criteria) || q.Criteria[i] == nil {
		return ""
	}
	if s, ok := q.Criteria[i].(string); ok {
		return s
	}
	return fmt.Sprint(q.Criteria[i])
}

// Provider opens connections from connection strings.
type Provider interface {
	Open(ctx context.Context, connection string) (Connection, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, connection string) (Connection, error)

func (f ProviderFunc) Open(ctx context.Context, connection string) (Connection, error) {
	return f(ctx, connection)
}

// Connection is an open database connection.
type Connection interface {
	// Execute runs a statement that returns no rows.
	Execute(sql string) error
	// OpenCursor opens a read-only, forward-only cursor over a query.
	OpenCursor(sql string) (Cursor, error)
	// OpenSchema opens a cursor over schema metadata.
	OpenSchema(query SchemaQuery) (Cursor, error)
	BeginTrans() error
	CommitTrans() error
	RollbackTrans() error
	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// Cursor is a recordset positioned on one row at a time.
type Cursor interface {
	// BOF reports whether the position is before the first row.
	BOF() (bool, error)
	// EOF reports whether the position is after the last row.
	EOF() (bool, error)
	MoveFirst() error
	MoveNext() error
	FieldCount() (int, error)
	FieldName(i int) (string, error)
	FieldType(i int) (DataType, error)
	// FieldValue returns the raw value of field i on the current row:
	// nil, bool, an integer or float, string, time.Time or []byte.
	FieldValue(i int) (any, error)
	// Close releases the cursor. It is safe to call more than once.
	Close() error
}
