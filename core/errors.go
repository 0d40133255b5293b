package core

import (
	"errors"
	"fmt"
)

// HRESULT codes raised by the automation layer, as signed 32-bit values.
const (
	CodeLoginFailed         int32 = -2147217843 // DB_SEC_E_AUTH_FAILED
	CodeAccessDenied        int32 = -2147024891 // E_ACCESSDENIED
	CodeUnspecified         int32 = -2147467259 // E_FAIL
	CodeErrorsInCommand     int32 = -2147217900 // installable ISAM not found, syntax errors
	CodeConnectionFailed    int32 = -2147467262 // connection failed
	CodeMissingParameter    int32 = -2147217904 // no value given for one or more parameters
	CodeWrongType           int32 = -2147217887 // DB_E_ERRORSOCCURRED
	CodeItemNotFound        int32 = -2147217865 // item not found in collection
	CodeUnexpected          int32 = -2147418113 // E_UNEXPECTED
	CodeFeatureNotAvailable int32 = -2146825037 // adErrFeatureNotAvailable
	CodeInvalidClassString  int32 = -2147221005 // CO_E_CLASSSTRING
	CodeInvalidArgument     int32 = -2147024809 // E_INVALIDARG
	CodeFileNotFound        int32 = -2147024894 // ERROR_FILE_NOT_FOUND
)

// UnspecifiedMessage replaces an empty provider message. Jet raises
// message-less faults when unbracketed identifiers collide with
// reserved words.
const UnspecifiedMessage = "Unspecified error, SQL may contain reserved words and symbols, surround it with brackets []"

var (
	ErrEnvelope       = errors.New("malformed command envelope")
	ErrUnknownCommand = errors.New("unknown command")
	ErrScript         = errors.New("script error")
)

// ProviderError is a fault raised by the database automation layer.
type ProviderError struct {
	Code        int32
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider error 0x%08X", uint32(e.Code))
	}
	return e.Description
}

// NewProviderError builds a ProviderError from a code and description.
func NewProviderError(code int32, format string, args ...any) *ProviderError {
	return &ProviderError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Kind is a failure class the calling process can branch on.
type Kind int

const (
	GenericDatabaseError Kind = iota
	EnvelopeParseError
	UnknownCommandError
	AuthOrPermissionError
	ProviderOrConnectionError
	SqlOrParameterError
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitEnvelope = 3
	ExitSQL      = 4
	ExitDispatch = 5
	ExitProvider = 6
	ExitAuth     = 9
	ExitGeneric  = 10
)

func (k Kind) ExitCode() int {
	switch k {
	case EnvelopeParseError:
		return ExitEnvelope
	case UnknownCommandError:
		return ExitDispatch
	case AuthOrPermissionError:
		return ExitAuth
	case ProviderOrConnectionError:
		return ExitProvider
	case SqlOrParameterError:
		return ExitSQL
	default:
		return ExitGeneric
	}
}

func (k Kind) String() string {
	switch k {
	case EnvelopeParseError:
		return "envelope parse error"
	case UnknownCommandError:
		return "unknown command"
	case AuthOrPermissionError:
		return "auth or permission error"
	case ProviderOrConnectionError:
		return "provider or connection error"
	case SqlOrParameterError:
		return "sql or parameter error"
	default:
		return "database error"
	}
}

// KindOf classifies a raw provider code. A nil code is generic.
func KindOf(code *int32) Kind {
	if code == nil {
		return GenericDatabaseError
	}
	switch *code {
	case CodeLoginFailed, CodeAccessDenied, CodeUnspecified:
		return AuthOrPermissionError
	case CodeErrorsInCommand, CodeConnectionFailed:
		return ProviderOrConnectionError
	case CodeMissingParameter, CodeWrongType, CodeItemNotFound:
		return SqlOrParameterError
	default:
		return GenericDatabaseError
	}
}

// Classify returns the exit code for a raw provider code.
func Classify(code *int32) int {
	return KindOf(code).ExitCode()
}

// ErrorRecord is the document written to the error channel.
type ErrorRecord struct {
	Code    *int32 `json:"code,omitempty"`
	Message string `json:"message"`

	kind Kind
}

// ExitCode is the process exit status for the record.
func (r ErrorRecord) ExitCode() int {
	return r.kind.ExitCode()
}

func (r ErrorRecord) Kind() Kind {
	return r.kind
}

// RecordOf turns any failure into an error record. Envelope and
// unknown-command failures get their fixed codes, provider faults keep
// theirs, and everything else carries no code.
func RecordOf(err error) ErrorRecord {
	switch {
	case errors.Is(err, ErrEnvelope):
		code := CodeInvalidArgument
		return ErrorRecord{Code: &code, Message: "JSON Parse Error: " + detail(err, ErrEnvelope), kind: EnvelopeParseError}
	case errors.Is(err, ErrUnknownCommand):
		code := CodeFileNotFound
		return ErrorRecord{Code: &code, Message: "Script Error: Unknown command: " + detail(err, ErrUnknownCommand), kind: UnknownCommandError}
	case errors.Is(err, ErrScript):
		code := CodeFileNotFound
		return ErrorRecord{Code: &code, Message: "Script Error: " + detail(err, ErrScript), kind: UnknownCommandError}
	}

	record := ErrorRecord{}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		code := providerErr.Code
		record.Code = &code
		record.Message = providerErr.Description
	} else if err != nil {
		record.Message = err.Error()
	}
	if record.Message == "" {
		record.Message = UnspecifiedMessage
	}
	record.kind = KindOf(record.Code)
	return record
}

// detailError carries the text that follows a sentinel's fixed prefix.
type detailError struct {
	sentinel error
	detail   string
}

func (e *detailError) Error() string { return e.sentinel.Error() + ": " + e.detail }
func (e *detailError) Unwrap() error { return e.sentinel }

// EnvelopeError wraps a decode failure as ErrEnvelope.
func EnvelopeError(cause error) error {
	return &detailError{sentinel: ErrEnvelope, detail: cause.Error()}
}

// UnknownCommand reports a command name that has no handler.
func UnknownCommand(name string) error {
	return &detailError{sentinel: ErrUnknownCommand, detail: name}
}

// ScriptError reports a failure outside any provider call, such as a
// panic inside a command handler.
func ScriptError(format string, args ...any) error {
	return &detailError{sentinel: ErrScript, detail: fmt.Sprintf(format, args...)}
}

func detail(err error, sentinel error) string {
	var d *detailError
	if errors.As(err, &d) && d.sentinel == sentinel {
		return d.detail
	}
	return err.Error()
}
