package db

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge/core"
)

// scriptedCursor replays fixed rows and lets a test override the BOF and
// EOF flags the translator sees before it moves.
type scriptedCursor struct {
	names []string
	types []core.DataType
	rows  [][]any
	pos   int

	bof, eof   *bool
	moveFirsts int
	failValue  error
}

func newScripted(names []string, types []core.DataType, rows ...[]any) *scriptedCursor {
	return &scriptedCursor{names: names, types: types, rows: rows}
}

func flag(b bool) *bool { return &b }

func (c *scriptedCursor) BOF() (bool, error) {
	if c.bof != nil {
		return *c.bof, nil
	}
	return len(c.rows) == 0, nil
}

func (c *scriptedCursor) EOF() (bool, error) {
	if c.eof != nil {
		return *c.eof, nil
	}
	return c.pos >= len(c.rows), nil
}

func (c *scriptedCursor) MoveFirst() error {
	c.moveFirsts++
	c.pos = 0
	c.bof, c.eof = nil, nil
	return nil
}

func (c *scriptedCursor) MoveNext() error {
	c.pos++
	return nil
}

func (c *scriptedCursor) FieldCount() (int, error)               { return len(c.names), nil }
func (c *scriptedCursor) FieldName(i int) (string, error)        { return c.names[i], nil }
func (c *scriptedCursor) FieldType(i int) (core.DataType, error) { return c.types[i], nil }
func (c *scriptedCursor) Close() error                           { return nil }

func (c *scriptedCursor) FieldValue(i int) (any, error) {
	if c.failValue != nil {
		return nil, c.failValue
	}
	return c.rows[c.pos][i], nil
}

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	decoder, err := core.NewDecoder(core.DefaultCharset)
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	return NewTranslator(decoder)
}

func TestTranslateEmpty(t *testing.T) {
	translator := newTestTranslator(t)
	cursor := newScripted([]string{"A"}, []core.DataType{core.IntegerType})

	rows, err := translator.Rows(cursor)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows.ResultSet) != 0 || rows.Arrays {
		t.Errorf("Expected empty row-object result, got %+v", rows)
	}

	cols, err := translator.Columns(cursor)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols.ResultSet.ResultSet) != 0 || len(cols.ResultSet.FieldMetaData.FieldNames) != 0 {
		t.Errorf("Expected empty columnar result without metadata, got %+v", cols)
	}
	if cursor.moveFirsts != 0 {
		t.Errorf("Expected an empty cursor never to be moved, got %d MoveFirst calls", cursor.moveFirsts)
	}

	data, _ := json.Marshal(cols)
	if string(data) != `{"type":true,"ResultSet":{"FieldMetaData":{"FieldNames":[],"FieldTypes":[]},"ResultSet":[]}}` {
		t.Errorf("Unexpected empty columnar JSON %s", data)
	}
}

// Emptiness requires both BOF and EOF. A cursor with only one of them set
// is rewound and walked, so one left at EOF still yields its rows.
func TestTranslateOnlyBOFAndEOFTogetherMeanEmpty(t *testing.T) {
	translator := newTestTranslator(t)

	tests := []struct {
		name     string
		bof, eof bool
	}{
		{"BOF only", true, false},
		{"EOF only", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor := newScripted([]string{"A"}, []core.DataType{core.IntegerType}, []any{1}, []any{2})
			cursor.bof, cursor.eof = flag(tt.bof), flag(tt.eof)

			result, err := translator.Rows(cursor)
			if err != nil {
				t.Fatal(err)
			}
			if len(result.ResultSet) != 2 {
				t.Errorf("Expected 2 rows, got %d", len(result.ResultSet))
			}
			if cursor.moveFirsts != 1 {
				t.Errorf("Expected one MoveFirst, got %d", cursor.moveFirsts)
			}
		})
	}
}

// Columnar mode trims text and row-object mode does not. Callers depend on
// both behaviours, so neither is normalised.
func TestTranslateTrimAsymmetry(t *testing.T) {
	translator := newTestTranslator(t)
	newCursor := func() *scriptedCursor {
		return newScripted([]string{"S"}, []core.DataType{core.VarWCharType}, []any{"  abc  "}, []any{"\ufeff\u3000x\u00a0\t"}, []any{"\u0085y"})
	}

	rows, err := translator.Rows(newCursor())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rows.ResultSet[0].Get("S"); v != "  abc  " {
		t.Errorf("Expected row-object value untouched, got %q", v)
	}

	cols, err := translator.Columns(newCursor())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"abc", "x", "\u0085y"}
	for i, w := range want {
		if got := cols.ResultSet.ResultSet[i][0]; got != w {
			t.Errorf("Row %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestTranslateShapesAgree(t *testing.T) {
	translator := newTestTranslator(t)
	names := []string{"A", "B", "C"}
	types := []core.DataType{core.IntegerType, core.VarWCharType, core.BooleanType}
	newCursor := func() *scriptedCursor {
		return newScripted(names, types, []any{1, "x", true}, []any{2, nil, false}, []any{3, "z", nil})
	}

	rows, err := translator.Rows(newCursor())
	if err != nil {
		t.Fatal(err)
	}
	cols, err := translator.Columns(newCursor())
	if err != nil {
		t.Fatal(err)
	}

	if len(rows.ResultSet) != 3 || len(cols.ResultSet.ResultSet) != 3 {
		t.Fatalf("Expected 3 rows in both shapes, got %d and %d", len(rows.ResultSet), len(cols.ResultSet.ResultSet))
	}
	for i := range rows.ResultSet {
		if rows.ResultSet[i].Len() != len(names) || len(cols.ResultSet.ResultSet[i]) != len(names) {
			t.Errorf("Row %d: field counts differ from FieldCount", i)
		}
	}
	meta := cols.ResultSet.FieldMetaData
	if len(meta.FieldNames) != 3 || len(meta.FieldTypes) != 3 || meta.FieldTypes[2] != core.BooleanType {
		t.Errorf("Unexpected metadata %+v", meta)
	}

	data, _ := json.Marshal(rows.ResultSet)
	if string(data) != `[{"A":1,"B":"x","C":true},{"A":2,"B":null,"C":false},{"A":3,"B":"z","C":null}]` {
		t.Errorf("Unexpected JSON %s", data)
	}
}

func TestTranslateIdempotent(t *testing.T) {
	translator := newTestTranslator(t)
	cursor := newScripted([]string{"A"}, []core.DataType{core.VarWCharType}, []any{"a"}, []any{"b"})

	first, err := translator.Columns(cursor)
	if err != nil {
		t.Fatal(err)
	}
	second, err := translator.Columns(cursor)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("Expected identical output, got %s and %s", a, b)
	}
}

func TestCoerce(t *testing.T) {
	translator := newTestTranslator(t)
	utc := time.Date(2020, 1, 2, 3, 4, 5, 6e6, time.UTC)

	for _, typ := range []core.DataType{core.DateType, core.FileTimeType, core.DBDateType, core.DBTimeType, core.DBTimeStampType} {
		v, err := translator.Coerce(typ, utc)
		if err != nil {
			t.Fatalf("type %d: %v", typ, err)
		}
		ts, ok := v.(core.Timestamp)
		if !ok {
			t.Fatalf("type %d: expected Timestamp, got %T", typ, v)
		}
		if ts.Location() != time.Local || ts.Year() != 2020 || ts.Hour() != 3 || ts.Minute() != 4 || ts.Nanosecond() != 6e6 {
			t.Errorf("type %d: expected the same wall clock in local time, got %v", typ, ts.Time)
		}
	}

	for _, typ := range []core.DataType{core.BinaryType, core.VarBinaryType, core.LongVarBinaryType} {
		v, err := translator.Coerce(typ, []byte{'h', 0, 'i', 0})
		if err != nil {
			t.Fatalf("type %d: %v", typ, err)
		}
		if v != "hi" {
			t.Errorf("type %d: expected decoded text, got %#v", typ, v)
		}
	}

	passthrough := []struct {
		typ   core.DataType
		value any
	}{
		{core.IntegerType, int32(7)},
		{core.DoubleType, 1.5},
		{core.BooleanType, true},
		{core.VarWCharType, "  raw  "},
		{core.CurrencyType, 12.3456},
	}
	for _, tt := range passthrough {
		v, err := translator.Coerce(tt.typ, tt.value)
		if err != nil || v != tt.value {
			t.Errorf("type %d: expected %v unchanged, got %v (%v)", tt.typ, tt.value, v, err)
		}
	}

	for _, typ := range []core.DataType{core.DBTimeStampType, core.LongVarBinaryType, core.IntegerType} {
		if v, err := translator.Coerce(typ, nil); v != nil || err != nil {
			t.Errorf("type %d: expected NULL to stay NULL, got %v (%v)", typ, v, err)
		}
	}

	if _, err := translator.Coerce(core.DateType, "yesterday"); err == nil {
		t.Error("Expected a non-time date value to fail")
	}
}

func TestTranslateFieldError(t *testing.T) {
	translator := newTestTranslator(t)
	cursor := newScripted([]string{"A"}, []core.DataType{core.IntegerType}, []any{1})
	boom := errors.New("boom")
	cursor.failValue = boom

	if _, err := translator.Rows(cursor); !errors.Is(err, boom) {
		t.Errorf("Expected field failure to propagate, got %v", err)
	}
}
