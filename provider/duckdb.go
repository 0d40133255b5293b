package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"github.com/nickyhof/ADOBridge/core"
)

// duckTypes maps DuckDB base type names to the ADO type codes a Jet
// provider would report for the same data.
var duckTypes = map[string]core.DataType{
	"BOOLEAN":   core.BooleanType,
	"TINYINT":   core.TinyIntType,
	"SMALLINT":  core.SmallIntType,
	"INTEGER":   core.IntegerType,
	"BIGINT":    core.BigIntType,
	"UTINYINT":  core.UnsignedTinyIntType,
	"USMALLINT": core.UnsignedSmallType,
	"UINTEGER":  core.UnsignedIntType,
	"UBIGINT":   core.UnsignedBigIntType,
	"FLOAT":     core.SingleType,
	"DOUBLE":    core.DoubleType,
	"DECIMAL":   core.NumericType,
	"HUGEINT":   core.NumericType,
	"VARCHAR":   core.VarWCharType,
	"BLOB":      core.LongVarBinaryType,
	"DATE":      core.DBDateType,
	"TIME":      core.DBTimeType,
	"TIMESTAMP": core.DBTimeStampType,
	"UUID":      core.GUIDType,
}

func duckType(name string) core.DataType {
	base := strings.ToUpper(name)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "TIMESTAMP") {
		return core.DBTimeStampType
	}
	if t, ok := duckTypes[base]; ok {
		return t
	}
	return core.VariantType
}

// DuckDB opens connections to DuckDB database files. The Data Source
// key names the file; an empty one opens an in-memory database.
type DuckDB struct{}

func (DuckDB) Open(ctx context.Context, connection string) (core.Connection, error) {
	cs := ParseConnectionString(connection)

	db, err := sql.Open("duckdb", cs.DataSource())
	if err != nil {
		return nil, duckError(err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, duckError(err)
	}
	return &duckConnection{ctx: ctx, db: db, conn: conn}, nil
}

type duckConnection struct {
	ctx    context.Context
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

type duckQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *duckConnection) querier() duckQuerier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *duckConnection) Execute(query string) error {
	if c.closed {
		return errObjectClosed
	}
	if _, err := c.querier().ExecContext(c.ctx, query); err != nil {
		return duckError(err)
	}
	return nil
}

func (c *duckConnection) OpenCursor(query string) (core.Cursor, error) {
	if c.closed {
		return nil, errObjectClosed
	}
	cursor, err := c.materialize(query)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// materialize runs query and reads every row into a StaticCursor.
func (c *duckConnection) materialize(query string) (*StaticCursor, error) {
	rows, err := c.querier().QueryContext(c.ctx, query)
	if err != nil {
		return nil, duckError(err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, duckError(err)
	}
	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{Name: ct.Name(), Type: duckType(ct.DatabaseTypeName())}
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, duckError(err)
		}
		for i, v := range values {
			values[i] = duckValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, duckError(err)
	}
	return NewStaticCursor(columns, data), nil
}

// duckValue reduces driver-specific values to plain Go values.
func duckValue(v any) any {
	switch v := v.(type) {
	case nil, bool, string, []byte, time.Time,
		int8, int16, int32, int64, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case interface{ Float64() float64 }:
		return v.Float64()
	case fmt.Stringer:
		return v.String()
	}
	return v
}

var schemaQueries = map[core.SchemaType]string{
	core.SchemaCatalogs: `SELECT DISTINCT catalog_name AS CATALOG_NAME
		FROM information_schema.schemata ORDER BY 1`,
	core.SchemaSchemata: `SELECT catalog_name AS CATALOG_NAME, schema_name AS SCHEMA_NAME, schema_owner AS SCHEMA_OWNER
		FROM information_schema.schemata ORDER BY 1, 2`,
	core.SchemaTables: `SELECT table_catalog AS TABLE_CATALOG, table_schema AS TABLE_SCHEMA, table_name AS TABLE_NAME,
			CASE table_type WHEN 'BASE TABLE' THEN 'TABLE' ELSE table_type END AS TABLE_TYPE
		FROM information_schema.tables ORDER BY 4, 3`,
	core.SchemaColumns: `SELECT table_catalog AS TABLE_CATALOG, table_schema AS TABLE_SCHEMA, table_name AS TABLE_NAME,
			column_name AS COLUMN_NAME, ordinal_position AS ORDINAL_POSITION,
			CASE is_nullable WHEN 'YES' THEN true ELSE false END AS IS_NULLABLE,
			data_type AS DATA_TYPE
		FROM information_schema.columns ORDER BY 3, 5`,
	core.SchemaViews: `SELECT database_name AS TABLE_CATALOG, schema_name AS TABLE_SCHEMA, view_name AS TABLE_NAME,
			sql AS VIEW_DEFINITION
		FROM duckdb_views() WHERE NOT internal ORDER BY 3`,
}

func (c *duckConnection) OpenSchema(query core.SchemaQuery) (core.Cursor, error) {
	if c.closed {
		return nil, errObjectClosed
	}
	text, ok := schemaQueries[query.Type]
	if !ok {
		return nil, core.NewProviderError(core.CodeFeatureNotAvailable, "Object or provider is not capable of performing requested operation.")
	}
	cursor, err := c.materialize(text)
	if err != nil {
		return nil, err
	}
	if query.Type == core.SchemaColumns {
		adoDataTypes(cursor)
	}
	if err := restrict(cursor, query); err != nil {
		return nil, err
	}
	return cursor, nil
}

// adoDataTypes rewrites the DATA_TYPE column from DuckDB type names to
// ADO type codes.
func adoDataTypes(cursor *StaticCursor) {
	for i, col := range cursor.columns {
		if col.Name != "DATA_TYPE" {
			continue
		}
		cursor.columns[i].Type = core.UnsignedSmallType
		for _, row := range cursor.rows {
			if name, ok := row[i].(string); ok {
				row[i] = int64(duckType(name))
			}
		}
	}
}

func (c *duckConnection) BeginTrans() error {
	if c.closed {
		return errObjectClosed
	}
	if c.tx != nil {
		return core.NewProviderError(core.CodeUnexpected, "Transaction already active.")
	}
	tx, err := c.conn.BeginTx(c.ctx, nil)
	if err != nil {
		return duckError(err)
	}
	c.tx = tx
	return nil
}

func (c *duckConnection) CommitTrans() error {
	if c.tx == nil {
		return core.NewProviderError(codeNoTransaction, "No transaction is active.")
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return duckError(err)
	}
	return nil
}

func (c *duckConnection) RollbackTrans() error {
	if c.tx == nil {
		return core.NewProviderError(codeNoTransaction, "No transaction is active.")
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return duckError(err)
	}
	return nil
}

func (c *duckConnection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.tx != nil {
		c.tx.Rollback()
		c.tx = nil
	}
	return errors.Join(c.conn.Close(), c.db.Close())
}

// duckError maps DuckDB error types to the HRESULTs a Jet provider
// raises for the same class of failure.
func duckError(err error) error {
	if err == nil {
		return nil
	}
	var perr *core.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	var derr *duckdb.Error
	if !errors.As(err, &derr) {
		return &core.ProviderError{Code: core.CodeUnexpected, Description: err.Error()}
	}

	code := core.CodeUnexpected
	switch derr.Type {
	case duckdb.ErrorTypeParser, duckdb.ErrorTypeSyntax:
		code = core.CodeErrorsInCommand
	case duckdb.ErrorTypeCatalog:
		code = core.CodeItemNotFound
	case duckdb.ErrorTypeBinder, duckdb.ErrorTypeParameterNotResolved:
		code = core.CodeMissingParameter
	case duckdb.ErrorTypeConversion, duckdb.ErrorTypeMismatchType, duckdb.ErrorTypeInvalidType:
		code = core.CodeWrongType
	case duckdb.ErrorTypePermission:
		code = core.CodeAccessDenied
	case duckdb.ErrorTypeIO, duckdb.ErrorTypeConnection:
		code = core.CodeUnspecified
	}
	return &core.ProviderError{Code: code, Description: derr.Msg}
}
