package core

import (
	"time"

	json "github.com/goccy/go-json"
)

// DataType is a provider column type code (ADO DataTypeEnum).
type DataType int

const (
	EmptyType           DataType = 0
	SmallIntType        DataType = 2
	IntegerType         DataType = 3
	SingleType          DataType = 4
	DoubleType          DataType = 5
	CurrencyType        DataType = 6
	DateType            DataType = 7
	BSTRType            DataType = 8
	BooleanType         DataType = 11
	VariantType         DataType = 12
	DecimalType         DataType = 14
	TinyIntType         DataType = 16
	UnsignedTinyIntType DataType = 17
	UnsignedSmallType   DataType = 18
	UnsignedIntType     DataType = 19
	BigIntType          DataType = 20
	UnsignedBigIntType  DataType = 21
	FileTimeType        DataType = 64
	GUIDType            DataType = 72
	BinaryType          DataType = 128
	CharType            DataType = 129
	WCharType           DataType = 130
	NumericType         DataType = 131
	DBDateType          DataType = 133
	DBTimeType          DataType = 134
	DBTimeStampType     DataType = 135
	VarCharType         DataType = 200
	LongVarCharType     DataType = 201
	VarWCharType        DataType = 202
	LongVarWCharType    DataType = 203
	VarBinaryType       DataType = 204
	LongVarBinaryType   DataType = 205
)

// IsDate reports whether values of type t are calendar timestamps.
func IsDate(t DataType) bool {
	return t == DateType || t == FileTimeType || t == DBDateType || t == DBTimeType || t == DBTimeStampType
}

// IsBinary reports whether values of type t are raw byte payloads.
func IsBinary(t DataType) bool {
	return t == BinaryType || t == VarBinaryType || t == LongVarBinaryType
}

// timestampLayout is how the host renders dates: UTC, millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is a calendar timestamp in local time.
type Timestamp struct {
	time.Time
}

// LocalTimestamp reinterprets the wall-clock reading of t as local time.
// The provider reports UTC components while the host assumes local ones,
// so this is a literal re-labelling, not a zone conversion.
func LocalTimestamp(t time.Time) Timestamp {
	return Timestamp{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)}
}

func (ts Timestamp) String() string {
	return ts.UTC().Format(timestampLayout)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// Identity identifies who ran a journaled command.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (identity Identity) String() string {
	return identity.Name + " <" + identity.Email + ">"
}
