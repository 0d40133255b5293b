package db

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge/core"
)

type ResultType int

const (
	RecordResultType ResultType = iota
	ArrayResultType
)

type Result interface {
	Kind() ResultType
	Display(w io.Writer)
}

// Record is one row in row-object mode. Names keep field declaration
// order; a repeated name keeps its first position and takes the last value.
type Record struct {
	names  []string
	values []any
	index  map[string]int
}

func newRecord(size int) Record {
	return Record{
		names:  make([]string, 0, size),
		values: make([]any, 0, size),
		index:  make(map[string]int, size),
	}
}

// Set assigns value to name.
func (r *Record) Set(name string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.values[i] = value
		return
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Names returns the field names in order.
func (r Record) Names() []string {
	return r.names
}

func (r Record) Len() int {
	return len(r.names)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RecordResult is the row-object translation of a cursor.
type RecordResult struct {
	Arrays    bool     `json:"type"`
	ResultSet []Record `json:"ResultSet"`
}

// FieldMetaData describes the columns of an ArrayResult.
type FieldMetaData struct {
	FieldNames []string        `json:"FieldNames"`
	FieldTypes []core.DataType `json:"FieldTypes"`
}

type ArraySet struct {
	FieldMetaData FieldMetaData `json:"FieldMetaData"`
	ResultSet     [][]any       `json:"ResultSet"`
}

// ArrayResult is the columnar translation of a cursor.
type ArrayResult struct {
	Arrays    bool     `json:"type"`
	ResultSet ArraySet `json:"ResultSet"`
}

func newRecordResult() RecordResult {
	return RecordResult{Arrays: false, ResultSet: make([]Record, 0)}
}

func newArrayResult() ArrayResult {
	return ArrayResult{
		Arrays: true,
		ResultSet: ArraySet{
			FieldMetaData: FieldMetaData{
				FieldNames: make([]string, 0),
				FieldTypes: make([]core.DataType, 0),
			},
			ResultSet: make([][]any, 0),
		},
	}
}

func (result RecordResult) Kind() ResultType {
	return RecordResultType
}

func (result ArrayResult) Kind() ResultType {
	return ArrayResultType
}

// Columns returns the field names of the first row.
func (result RecordResult) Columns() []string {
	if len(result.ResultSet) == 0 {
		return nil
	}
	return result.ResultSet[0].Names()
}

func (result RecordResult) Display(w io.Writer) {
	if len(result.ResultSet) > 0 {
		columns := result.Columns()
		table := NewTable(w)
		table.Header(columns)
		for _, record := range result.ResultSet {
			row := make([]string, len(columns))
			for i, name := range columns {
				value, _ := record.Get(name)
				row[i] = FormatValue(value)
			}
			table.Row(row)
		}
		table.Render()
	}
	fmt.Fprintf(w, "%d rows\n", len(result.ResultSet))
}

func (result ArrayResult) Display(w io.Writer) {
	set := result.ResultSet
	if len(set.ResultSet) > 0 {
		table := NewTable(w)
		table.Header(set.FieldMetaData.FieldNames)
		for _, values := range set.ResultSet {
			row := make([]string, len(values))
			for i, value := range values {
				row[i] = FormatValue(value)
			}
			table.Row(row)
		}
		table.Render()
	}
	fmt.Fprintf(w, "%d rows\n", len(set.ResultSet))
}

// FormatValue renders a coerced value for display.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case core.Timestamp:
		return v.String()
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return fmt.Sprint(v)
	}
}
