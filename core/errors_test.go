package core

import (
	"errors"
	"fmt"
	"testing"

	json "github.com/goccy/go-json"
)

func code(c int32) *int32 { return &c }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code *int32
		want int
	}{
		{"login failed", code(CodeLoginFailed), ExitAuth},
		{"access denied", code(CodeAccessDenied), ExitAuth},
		{"unspecified", code(CodeUnspecified), ExitAuth},
		{"installable ISAM", code(CodeErrorsInCommand), ExitProvider},
		{"connection failed", code(CodeConnectionFailed), ExitProvider},
		{"missing parameter", code(CodeMissingParameter), ExitSQL},
		{"wrong type", code(CodeWrongType), ExitSQL},
		{"item not found", code(CodeItemNotFound), ExitSQL},
		{"unrecognized", code(-1), ExitGeneric},
		{"zero", code(0), ExitGeneric},
		{"missing", nil, ExitGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.code); got != tt.want {
				t.Errorf("Classify() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecordOfProviderError(t *testing.T) {
	err := fmt.Errorf("open: %w", &ProviderError{Code: CodeLoginFailed, Description: "Not a valid password."})

	record := RecordOf(err)
	if record.Code == nil || *record.Code != CodeLoginFailed {
		t.Fatalf("Expected code %d, got %v", CodeLoginFailed, record.Code)
	}
	if record.Message != "Not a valid password." {
		t.Errorf("Unexpected message: %q", record.Message)
	}
	if record.ExitCode() != ExitAuth {
		t.Errorf("Expected exit %d, got %d", ExitAuth, record.ExitCode())
	}
}

func TestRecordOfEmptyMessage(t *testing.T) {
	record := RecordOf(&ProviderError{Code: -2147217900})
	if record.Message != UnspecifiedMessage {
		t.Errorf("Expected bracket hint, got %q", record.Message)
	}
	if record.ExitCode() != ExitProvider {
		t.Errorf("Expected exit %d, got %d", ExitProvider, record.ExitCode())
	}
}

func TestRecordOfPlainError(t *testing.T) {
	record := RecordOf(errors.New("boom"))
	if record.Code != nil {
		t.Errorf("Expected no code, got %d", *record.Code)
	}
	if record.ExitCode() != ExitGeneric {
		t.Errorf("Expected exit %d, got %d", ExitGeneric, record.ExitCode())
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"message":"boom"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestRecordOfEnvelopeError(t *testing.T) {
	record := RecordOf(EnvelopeError(errors.New("unexpected end of JSON input")))
	if record.ExitCode() != ExitEnvelope {
		t.Errorf("Expected exit %d, got %d", ExitEnvelope, record.ExitCode())
	}
	if record.Message != "JSON Parse Error: unexpected end of JSON input" {
		t.Errorf("Unexpected message: %q", record.Message)
	}
	if record.Code == nil || *record.Code != CodeInvalidArgument {
		t.Errorf("Expected code %d, got %v", CodeInvalidArgument, record.Code)
	}
}

func TestRecordOfUnknownCommand(t *testing.T) {
	record := RecordOf(UnknownCommand("drop_everything"))
	if record.ExitCode() != ExitDispatch {
		t.Errorf("Expected exit %d, got %d", ExitDispatch, record.ExitCode())
	}
	if record.Message != "Script Error: Unknown command: drop_everything" {
		t.Errorf("Unexpected message: %q", record.Message)
	}

	data, _ := json.Marshal(record)
	if string(data) != `{"code":-2147024894,"message":"Script Error: Unknown command: drop_everything"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestRecordOfScriptError(t *testing.T) {
	record := RecordOf(ScriptError("index out of range [3] with length 2"))
	if record.ExitCode() != ExitDispatch {
		t.Errorf("Expected exit %d, got %d", ExitDispatch, record.ExitCode())
	}
	if record.Message != "Script Error: index out of range [3] with length 2" {
		t.Errorf("Unexpected message: %q", record.Message)
	}
}
