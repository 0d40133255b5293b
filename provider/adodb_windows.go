//go:build windows

package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"runtime"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"

	"github.com/nickyhof/ADOBridge/core"
)

const (
	adUseClient        = 3
	adOpenForwardOnly  = 0
	adLockReadOnly     = 1
	adStateOpen        = 1
	adCmdText          = 1
	adExecuteNoRecords = 0x80

	// DISP_E_PARAMNOTFOUND marks an omitted optional argument.
	dispParamNotFound = 0x80020004
)

var (
	oleaut32                  = windows.NewLazySystemDLL("oleaut32.dll")
	procSafeArrayCreateVector = oleaut32.NewProc("SafeArrayCreateVector")
	procSafeArrayPutElement   = oleaut32.NewProc("SafeArrayPutElement")
	procSafeArrayDestroy      = oleaut32.NewProc("SafeArrayDestroy")
)

// ADODB opens connections through the ADODB COM automation objects.
type ADODB struct{}

func (ADODB) Open(ctx context.Context, connection string) (core.Connection, error) {
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oerr *ole.OleError
		// S_FALSE: already initialized on this thread.
		if !errors.As(err, &oerr) || oerr.Code() != 1 {
			runtime.UnlockOSThread()
			return nil, oleError(err)
		}
	}

	c := &adoConnection{}
	conn, err := createObject("ADODB.Connection")
	if err != nil {
		c.uninit()
		return nil, err
	}
	c.conn = conn

	if _, err := oleutil.PutProperty(conn, "CursorLocation", adUseClient); err != nil {
		c.Close()
		return nil, oleError(err)
	}
	if _, err := oleutil.CallMethod(conn, "Open", connection); err != nil {
		c.Close()
		return nil, oleError(err)
	}
	return c, nil
}

func createObject(progID string) (*ole.IDispatch, error) {
	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		return nil, oleError(err)
	}
	defer unknown.Release()
	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, oleError(err)
	}
	return disp, nil
}

type adoConnection struct {
	conn   *ole.IDispatch
	closed bool
}

func (c *adoConnection) Execute(sql string) error {
	if c.closed {
		return errObjectClosed
	}
	result, err := oleutil.CallMethod(c.conn, "Execute", sql, missingArg(), adCmdText|adExecuteNoRecords)
	if err != nil {
		return oleError(err)
	}
	result.Clear()
	return nil
}

func (c *adoConnection) OpenCursor(sql string) (core.Cursor, error) {
	if c.closed {
		return nil, errObjectClosed
	}
	rs, err := createObject("ADODB.Recordset")
	if err != nil {
		return nil, err
	}
	if _, err := oleutil.CallMethod(rs, "Open", sql, c.conn, adOpenForwardOnly, adLockReadOnly, adCmdText); err != nil {
		rs.Release()
		return nil, oleError(err)
	}
	return newADOCursor(rs)
}

func (c *adoConnection) OpenSchema(query core.SchemaQuery) (core.Cursor, error) {
	if c.closed {
		return nil, errObjectClosed
	}
	args := []any{int32(query.Type)}
	if query.Criteria != nil {
		criteria, release, err := criteriaVariant(query.Criteria)
		if err != nil {
			return nil, err
		}
		defer release()
		args = append(args, criteria)
	} else if query.HasID {
		args = append(args, missingArg())
	}
	if query.HasID {
		args = append(args, query.ID)
	}
	result, err := oleutil.CallMethod(c.conn, "OpenSchema", args...)
	if err != nil {
		return nil, oleError(err)
	}
	rs := result.ToIDispatch()
	if rs == nil {
		return nil, core.NewProviderError(core.CodeUnexpected, "OpenSchema returned no recordset.")
	}
	return newADOCursor(rs)
}

// criteriaVariant packs restriction values into a one-dimensional
// VT_ARRAY|VT_VARIANT. The returned func destroys the array.
func criteriaVariant(criteria []any) (*ole.VARIANT, func(), error) {
	array, _, _ := procSafeArrayCreateVector.Call(uintptr(ole.VT_VARIANT), 0, uintptr(len(criteria)))
	if array == 0 {
		return nil, nil, core.NewProviderError(core.CodeUnexpected, "Cannot allocate restriction array.")
	}
	destroy := func() { procSafeArrayDestroy.Call(array) }

	for i, value := range criteria {
		elem := restrictionVariant(value)
		index := int32(i)
		hr, _, _ := procSafeArrayPutElement.Call(array, uintptr(unsafe.Pointer(&index)), uintptr(unsafe.Pointer(&elem)))
		ole.VariantClear(&elem)
		if hr != 0 {
			destroy()
			return nil, nil, oleError(ole.NewError(hr))
		}
	}
	v := ole.NewVariant(ole.VT_ARRAY|ole.VT_VARIANT, int64(array))
	return &v, destroy, nil
}

// restrictionVariant converts one decoded JSON criterion. Null leaves
// the position unrestricted.
func restrictionVariant(value any) ole.VARIANT {
	switch v := value.(type) {
	case nil:
		return ole.NewVariant(ole.VT_EMPTY, 0)
	case string:
		return ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(ole.SysAllocStringLen(v)))))
	case bool:
		if v {
			return ole.NewVariant(ole.VT_BOOL, 0xffff)
		}
		return ole.NewVariant(ole.VT_BOOL, 0)
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return ole.NewVariant(ole.VT_I4, int64(int32(v)))
		}
		return ole.NewVariant(ole.VT_R8, int64(math.Float64bits(v)))
	default:
		return restrictionVariant(fmt.Sprint(v))
	}
}

func missingArg() *ole.VARIANT {
	v := ole.NewVariant(ole.VT_ERROR, dispParamNotFound)
	return &v
}

func (c *adoConnection) call(method string) error {
	if c.closed {
		return errObjectClosed
	}
	if _, err := oleutil.CallMethod(c.conn, method); err != nil {
		return oleError(err)
	}
	return nil
}

func (c *adoConnection) BeginTrans() error    { return c.call("BeginTrans") }
func (c *adoConnection) CommitTrans() error   { return c.call("CommitTrans") }
func (c *adoConnection) RollbackTrans() error { return c.call("RollbackTrans") }

func (c *adoConnection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.conn != nil {
		err = closeObject(c.conn)
		c.conn.Release()
		c.conn = nil
	}
	c.uninit()
	return err
}

func (c *adoConnection) uninit() {
	ole.CoUninitialize()
	runtime.UnlockOSThread()
}

// closeObject calls Close on a connection or recordset that is still open.
func closeObject(obj *ole.IDispatch) error {
	state, err := oleutil.GetProperty(obj, "State")
	if err != nil {
		return oleError(err)
	}
	if state.Val&adStateOpen == 0 {
		return nil
	}
	if _, err := oleutil.CallMethod(obj, "Close"); err != nil {
		return oleError(err)
	}
	return nil
}

type adoCursor struct {
	rs     *ole.IDispatch
	fields *ole.IDispatch
	closed bool
}

func newADOCursor(rs *ole.IDispatch) (*adoCursor, error) {
	fields, err := oleutil.GetProperty(rs, "Fields")
	if err != nil {
		rs.Release()
		return nil, oleError(err)
	}
	return &adoCursor{rs: rs, fields: fields.ToIDispatch()}, nil
}

func (c *adoCursor) flag(name string) (bool, error) {
	if c.closed {
		return false, errObjectClosed
	}
	v, err := oleutil.GetProperty(c.rs, name)
	if err != nil {
		return false, oleError(err)
	}
	b, _ := v.Value().(bool)
	return b, nil
}

func (c *adoCursor) BOF() (bool, error) { return c.flag("BOF") }
func (c *adoCursor) EOF() (bool, error) { return c.flag("EOF") }

func (c *adoCursor) move(method string) error {
	if c.closed {
		return errObjectClosed
	}
	if _, err := oleutil.CallMethod(c.rs, method); err != nil {
		return oleError(err)
	}
	return nil
}

func (c *adoCursor) MoveFirst() error { return c.move("MoveFirst") }
func (c *adoCursor) MoveNext() error  { return c.move("MoveNext") }

func (c *adoCursor) FieldCount() (int, error) {
	if c.closed {
		return 0, errObjectClosed
	}
	v, err := oleutil.GetProperty(c.fields, "Count")
	if err != nil {
		return 0, oleError(err)
	}
	return int(v.Val), nil
}

func (c *adoCursor) field(i int) (*ole.IDispatch, error) {
	if c.closed {
		return nil, errObjectClosed
	}
	v, err := oleutil.GetProperty(c.fields, "Item", int32(i))
	if err != nil {
		return nil, oleError(err)
	}
	return v.ToIDispatch(), nil
}

func (c *adoCursor) fieldProperty(i int, name string) (*ole.VARIANT, error) {
	field, err := c.field(i)
	if err != nil {
		return nil, err
	}
	defer field.Release()
	v, err := oleutil.GetProperty(field, name)
	if err != nil {
		return nil, oleError(err)
	}
	return v, nil
}

func (c *adoCursor) FieldName(i int) (string, error) {
	v, err := c.fieldProperty(i, "Name")
	if err != nil {
		return "", err
	}
	return v.ToString(), nil
}

func (c *adoCursor) FieldType(i int) (core.DataType, error) {
	v, err := c.fieldProperty(i, "Type")
	if err != nil {
		return 0, err
	}
	return core.DataType(v.Val), nil
}

func (c *adoCursor) FieldValue(i int) (any, error) {
	v, err := c.fieldProperty(i, "Value")
	if err != nil {
		return nil, err
	}
	defer v.Clear()
	return variantValue(v), nil
}

// variantValue converts a VARIANT into the plain Go values cursors
// report.
func variantValue(v *ole.VARIANT) any {
	switch v.VT {
	case ole.VT_NULL, ole.VT_EMPTY:
		return nil
	case ole.VT_DATE:
		if t, ok := v.Value().(time.Time); ok {
			return t
		}
		return nil
	case ole.VT_ARRAY | ole.VT_UI1:
		return v.ToArray().ToByteArray()
	case ole.VT_CY:
		return float64(int64(v.Val)) / 10000
	case ole.VT_DECIMAL:
		return decimalValue(v)
	case ole.VT_BSTR:
		return v.ToString()
	}
	return v.Value()
}

// decimal mirrors the DECIMAL layout that shares storage with a VARIANT.
type decimal struct {
	vt    uint16
	scale uint8
	sign  uint8
	hi32  uint32
	lo64  uint64
}

func decimalValue(v *ole.VARIANT) float64 {
	d := (*decimal)(unsafe.Pointer(v))
	mantissa := new(big.Int).SetUint64(uint64(d.hi32))
	mantissa.Lsh(mantissa, 64)
	mantissa.Or(mantissa, new(big.Int).SetUint64(d.lo64))
	f, _ := new(big.Float).SetInt(mantissa).Float64()
	f /= math.Pow10(int(d.scale))
	if d.sign&0x80 != 0 {
		f = -f
	}
	return f
}

func (c *adoCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.fields != nil {
		c.fields.Release()
	}
	err := closeObject(c.rs)
	c.rs.Release()
	return err
}

// oleError recovers the provider's HRESULT and description from a COM
// failure.
func oleError(err error) error {
	var oerr *ole.OleError
	if !errors.As(err, &oerr) {
		return &core.ProviderError{Code: core.CodeUnexpected, Description: err.Error()}
	}
	if info, ok := oerr.SubError().(ole.EXCEPINFO); ok {
		return &core.ProviderError{Code: int32(info.SCODE()), Description: info.Description()}
	}
	return &core.ProviderError{Code: int32(oerr.Code()), Description: oerr.String()}
}
