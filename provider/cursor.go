package provider

import (
	"github.com/nickyhof/ADOBridge/core"
)

const (
	codeNoCurrentRecord int32 = -2146825267 // adErrNoCurrentRecord
	codeObjectClosed    int32 = -2146824584 // adErrObjectClosed
	codeNoTransaction   int32 = -2147168242 // XACT_E_NOTRANSACTION
)

var (
	errNoCurrentRecord = &core.ProviderError{
		Code:        codeNoCurrentRecord,
		Description: "Either BOF or EOF is True, or the current record has been deleted. Requested operation requires a current record.",
	}
	errObjectClosed = &core.ProviderError{
		Code:        codeObjectClosed,
		Description: "Operation is not allowed when the object is closed.",
	}
)

// Column describes one field of a StaticCursor.
type Column struct {
	Name string
	Type core.DataType
}

// StaticCursor is a fully materialized client-side cursor. A new cursor
// is positioned on its first row; an empty one has BOF and EOF set.
type StaticCursor struct {
	columns []Column
	rows    [][]any
	pos     int // -1 before the first row, len(rows) after the last
	closed  bool
	onClose func()
}

// NewStaticCursor returns a cursor over rows. Each row must have one
// value per column.
func NewStaticCursor(columns []Column, rows [][]any) *StaticCursor {
	c := &StaticCursor{columns: columns, rows: rows}
	if len(rows) == 0 {
		c.pos = -1
	}
	return c
}

func (c *StaticCursor) BOF() (bool, error) {
	if c.closed {
		return false, errObjectClosed
	}
	return c.pos < 0 || len(c.rows) == 0, nil
}

func (c *StaticCursor) EOF() (bool, error) {
	if c.closed {
		return false, errObjectClosed
	}
	return len(c.rows) == 0 || c.pos >= len(c.rows), nil
}

func (c *StaticCursor) MoveFirst() error {
	if c.closed {
		return errObjectClosed
	}
	if len(c.rows) == 0 {
		c.pos = -1
		return nil
	}
	c.pos = 0
	return nil
}

func (c *StaticCursor) MoveNext() error {
	if c.closed {
		return errObjectClosed
	}
	if len(c.rows) == 0 || c.pos >= len(c.rows) {
		return errNoCurrentRecord
	}
	c.pos++
	return nil
}

func (c *StaticCursor) FieldCount() (int, error) {
	if c.closed {
		return 0, errObjectClosed
	}
	return len(c.columns), nil
}

func (c *StaticCursor) column(i int) (Column, error) {
	if c.closed {
		return Column{}, errObjectClosed
	}
	if i < 0 || i >= len(c.columns) {
		return Column{}, core.NewProviderError(core.CodeItemNotFound, "Item cannot be found in the collection corresponding to the requested name or ordinal.")
	}
	return c.columns[i], nil
}

func (c *StaticCursor) FieldName(i int) (string, error) {
	col, err := c.column(i)
	return col.Name, err
}

func (c *StaticCursor) FieldType(i int) (core.DataType, error) {
	col, err := c.column(i)
	return col.Type, err
}

func (c *StaticCursor) FieldValue(i int) (any, error) {
	if _, err := c.column(i); err != nil {
		return nil, err
	}
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, errNoCurrentRecord
	}
	row := c.rows[c.pos]
	if i >= len(row) {
		return nil, nil
	}
	return row[i], nil
}

func (c *StaticCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.onClose != nil {
		c.onClose()
	}
	return nil
}

// Columns returns the cursor's field descriptions.
func (c *StaticCursor) Columns() []Column {
	return c.columns
}

// filter keeps the rows for which keep returns true and rewinds.
func (c *StaticCursor) filter(keep func(row []any) bool) {
	kept := c.rows[:0]
	for _, row := range c.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	c.rows = kept
	c.pos = 0
	if len(kept) == 0 {
		c.pos = -1
	}
}
