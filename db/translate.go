package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/nickyhof/ADOBridge/core"
)

// Translator converts cursors into portable results.
type Translator struct {
	decoder *core.Decoder
}

func NewTranslator(decoder *core.Decoder) *Translator {
	return &Translator{decoder: decoder}
}

// isEmpty treats a cursor as empty only when BOF and EOF are both set,
// so a cursor with either flag clear is walked from MoveFirst.
func isEmpty(cursor core.Cursor) (bool, error) {
	bof, err := cursor.BOF()
	if err != nil {
		return false, err
	}
	eof, err := cursor.EOF()
	if err != nil {
		return false, err
	}
	return bof && eof, nil
}

// walk positions a non-empty cursor on its first row and calls row for
// every position until EOF. Empty cursors are left untouched.
func walk(cursor core.Cursor, first func(count int) error, row func(count int) error) error {
	empty, err := isEmpty(cursor)
	if err != nil || empty {
		return err
	}

	if err := cursor.MoveFirst(); err != nil {
		return err
	}

	count, err := cursor.FieldCount()
	if err != nil {
		return err
	}
	if first != nil {
		if err := first(count); err != nil {
			return err
		}
	}

	for {
		eof, err := cursor.EOF()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}
		if err := row(count); err != nil {
			return err
		}
		if err := cursor.MoveNext(); err != nil {
			return err
		}
	}
}

// Rows translates a cursor into row-object mode. String values are
// returned exactly as the provider reported them.
func (t *Translator) Rows(cursor core.Cursor) (RecordResult, error) {
	result := newRecordResult()

	err := walk(cursor, nil, func(count int) error {
		record := newRecord(count)
		for i := 0; i < count; i++ {
			name, err := cursor.FieldName(i)
			if err != nil {
				return err
			}
			value, err := t.field(cursor, i, false)
			if err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			record.Set(name, value)
		}
		result.ResultSet = append(result.ResultSet, record)
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}
	return result, nil
}

// Columns translates a cursor into columnar mode. Field metadata is read
// once from the first row and string values are trimmed.
func (t *Translator) Columns(cursor core.Cursor) (ArrayResult, error) {
	result := newArrayResult()
	meta := &result.ResultSet.FieldMetaData

	first := func(count int) error {
		for i := 0; i < count; i++ {
			name, err := cursor.FieldName(i)
			if err != nil {
				return err
			}
			typ, err := cursor.FieldType(i)
			if err != nil {
				return err
			}
			meta.FieldNames = append(meta.FieldNames, name)
			meta.FieldTypes = append(meta.FieldTypes, typ)
		}
		return nil
	}

	err := walk(cursor, first, func(count int) error {
		values := make([]any, count)
		for i := 0; i < count; i++ {
			value, err := t.field(cursor, i, true)
			if err != nil {
				return fmt.Errorf("field %s: %w", meta.FieldNames[i], err)
			}
			values[i] = value
		}
		result.ResultSet.ResultSet = append(result.ResultSet.ResultSet, values)
		return nil
	})
	if err != nil {
		return ArrayResult{}, err
	}
	return result, nil
}

func (t *Translator) field(cursor core.Cursor, i int, trim bool) (any, error) {
	typ, err := cursor.FieldType(i)
	if err != nil {
		return nil, err
	}
	value, err := cursor.FieldValue(i)
	if err != nil {
		return nil, err
	}
	return t.coerce(typ, value, trim)
}

// Coerce applies the row-object conversion for a value of type typ.
func (t *Translator) Coerce(typ core.DataType, value any) (any, error) {
	return t.coerce(typ, value, false)
}

func (t *Translator) coerce(typ core.DataType, value any, trim bool) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch {
	case core.IsDate(typ):
		switch v := value.(type) {
		case time.Time:
			return core.LocalTimestamp(v), nil
		case core.Timestamp:
			return v, nil
		default:
			return nil, fmt.Errorf("cannot read %T as a date", value)
		}

	case core.IsBinary(typ):
		switch v := value.(type) {
		case []byte:
			return t.decoder.Decode(v)
		case string:
			return v, nil
		default:
			return nil, fmt.Errorf("cannot read %T as binary", value)
		}
	}

	if s, ok := value.(string); ok && trim {
		return strings.TrimFunc(s, isTrimSpace), nil
	}
	return value, nil
}

// isTrimSpace matches the host's whitespace class: ASCII blanks, the
// Unicode space separators, line/paragraph separators and the BOM.
func isTrimSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
