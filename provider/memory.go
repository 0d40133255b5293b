package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/nickyhof/ADOBridge/core"
)

// Table is a canned result served by the Memory provider.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Memory is a scripted provider. Queries are answered from canned
// tables keyed by SQL text, statements are recorded, and every open and
// close is counted so tests can check release discipline.
type Memory struct {
	mu       sync.Mutex
	results  map[string]Table
	schemas  map[core.SchemaType]Table
	failures map[string]error
	openErr  error

	stats MemoryStats
}

// MemoryStats is a snapshot of what a Memory provider has seen.
type MemoryStats struct {
	Connections       []string
	ConnectionsOpened int
	ConnectionsClosed int
	CursorsOpened     int
	CursorsClosed     int
	// DoubleCloses counts Close calls on handles that were already closed.
	DoubleCloses int
	Executed     []string
	Committed    []string
	Begun        int
	Commits      int
	Rollbacks    int
}

func NewMemory() *Memory {
	return &Memory{
		results:  make(map[string]Table),
		schemas:  make(map[core.SchemaType]Table),
		failures: make(map[string]error),
	}
}

func normalizeSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// AddResult registers the table returned for sql.
func (m *Memory) AddResult(sql string, table Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[normalizeSQL(sql)] = table
}

// AddSchema registers the rowset returned for a schema type.
func (m *Memory) AddSchema(schema core.SchemaType, table Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[schema] = table
}

// Fail makes Execute and OpenCursor of sql fail with err.
func (m *Memory) Fail(sql string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[normalizeSQL(sql)] = err
}

// FailOpen makes every Open fail with err.
func (m *Memory) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// Stats returns a snapshot of the provider's counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.Connections = append([]string(nil), m.stats.Connections...)
	stats.Executed = append([]string(nil), m.stats.Executed...)
	stats.Committed = append([]string(nil), m.stats.Committed...)
	return stats
}

func (m *Memory) Open(ctx context.Context, connection string) (core.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.stats.Connections = append(m.stats.Connections, connection)
	m.stats.ConnectionsOpened++
	return &memoryConnection{memory: m}, nil
}

type memoryConnection struct {
	memory  *Memory
	inTrans bool
	pending []string
	closed  bool
}

func (c *memoryConnection) Execute(sql string) error {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return errObjectClosed
	}
	m.stats.Executed = append(m.stats.Executed, sql)
	if err := m.failures[normalizeSQL(sql)]; err != nil {
		return err
	}
	if c.inTrans {
		c.pending = append(c.pending, sql)
	} else {
		m.stats.Committed = append(m.stats.Committed, sql)
	}
	return nil
}

func (c *memoryConnection) cursor(table Table) *StaticCursor {
	rows := make([][]any, len(table.Rows))
	copy(rows, table.Rows)
	cursor := NewStaticCursor(table.Columns, rows)
	m := c.memory
	m.stats.CursorsOpened++
	cursor.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stats.CursorsClosed++
	}
	return cursor
}

func (c *memoryConnection) OpenCursor(sql string) (core.Cursor, error) {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return nil, errObjectClosed
	}
	key := normalizeSQL(sql)
	if err := m.failures[key]; err != nil {
		return nil, err
	}
	table, ok := m.results[key]
	if !ok {
		return nil, core.NewProviderError(core.CodeItemNotFound, "The Microsoft Jet database engine cannot find the input table or query '%s'.", sql)
	}
	return &countedCursor{StaticCursor: c.cursor(table), memory: m}, nil
}

func (c *memoryConnection) OpenSchema(query core.SchemaQuery) (core.Cursor, error) {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return nil, errObjectClosed
	}
	table, ok := m.schemas[query.Type]
	if !ok {
		return nil, core.NewProviderError(core.CodeFeatureNotAvailable, "Object or provider is not capable of performing requested operation.")
	}
	cursor := c.cursor(table)
	if err := restrict(cursor, query); err != nil {
		m.stats.CursorsClosed++
		return nil, err
	}
	return &countedCursor{StaticCursor: cursor, memory: m}, nil
}

func (c *memoryConnection) BeginTrans() error {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.inTrans {
		return core.NewProviderError(core.CodeUnexpected, "Transaction already active.")
	}
	c.inTrans = true
	c.pending = nil
	m.stats.Begun++
	return nil
}

func (c *memoryConnection) CommitTrans() error {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if !c.inTrans {
		return core.NewProviderError(codeNoTransaction, "No transaction is active.")
	}
	m.stats.Committed = append(m.stats.Committed, c.pending...)
	m.stats.Commits++
	c.inTrans = false
	c.pending = nil
	return nil
}

func (c *memoryConnection) RollbackTrans() error {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if !c.inTrans {
		return core.NewProviderError(codeNoTransaction, "No transaction is active.")
	}
	m.stats.Rollbacks++
	c.inTrans = false
	c.pending = nil
	return nil
}

func (c *memoryConnection) Close() error {
	m := c.memory
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		m.stats.DoubleCloses++
		return nil
	}
	c.closed = true
	c.pending = nil
	m.stats.ConnectionsClosed++
	return nil
}

// countedCursor records repeated closes on a memory cursor.
type countedCursor struct {
	*StaticCursor
	memory *Memory
}

func (c *countedCursor) Close() error {
	if c.closed {
		c.memory.mu.Lock()
		c.memory.stats.DoubleCloses++
		c.memory.mu.Unlock()
		return nil
	}
	return c.StaticCursor.Close()
}
