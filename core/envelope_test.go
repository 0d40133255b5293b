package core

import (
	"errors"
	"testing"
)

func TestDecodeEnvelopeSingleStatement(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"connection":"Provider=Memory;","sql":"SELECT 1 AS X","FetchArrays":true}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.Connection != "Provider=Memory;" {
		t.Errorf("Unexpected connection: %q", env.Connection)
	}
	if len(env.SQL) != 1 || env.SQL.Text() != "SELECT 1 AS X" {
		t.Errorf("Unexpected sql: %v", env.SQL)
	}
	if !env.FetchArrays {
		t.Error("Expected FetchArrays to be set")
	}
}

func TestDecodeEnvelopeStatementList(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"connection":"c","sql":["INSERT 1","INSERT 2"]}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if len(env.SQL) != 2 || env.SQL[1] != "INSERT 2" {
		t.Errorf("Unexpected sql: %v", env.SQL)
	}
}

func TestDecodeEnvelopeRejectsBadSQL(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"connection":"c","sql":42}`)); err == nil {
		t.Error("Expected error for numeric sql")
	}
	if _, err := DecodeEnvelope([]byte(`{"connection":`)); err == nil {
		t.Error("Expected error for truncated JSON")
	}
}

func TestDecodeEnvelopeRequiresObject(t *testing.T) {
	for _, payload := range []string{"null", " null ", "[]", `"x"`, "42", ""} {
		if _, err := DecodeEnvelope([]byte(payload)); !errors.Is(err, ErrEnvelopeNotObject) {
			t.Errorf("DecodeEnvelope(%q) = %v, want ErrEnvelopeNotObject", payload, err)
		}
	}
	for _, payload := range []string{"{}", `{"connection":null,"sql":"SELECT 1"}`} {
		if _, err := DecodeEnvelope([]byte(payload)); !errors.Is(err, ErrMissingConnection) {
			t.Errorf("DecodeEnvelope(%q) = %v, want ErrMissingConnection", payload, err)
		}
	}
}

func TestEnvelopeSchemaQuery(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantCriteria bool
		wantID       bool
	}{
		{"type only", `{"connection":"c","type":20}`, false, false},
		{"criteria", `{"connection":"c","type":20,"criteria":[null,null,"Users"]}`, true, false},
		{"null criteria", `{"connection":"c","type":20,"criteria":null}`, true, false},
		{"id without criteria", `{"connection":"c","type":-1,"id":"{guid}"}`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.payload))
			if err != nil {
				t.Fatalf("DecodeEnvelope failed: %v", err)
			}
			q := env.SchemaQuery()
			if q.HasCriteria != tt.wantCriteria {
				t.Errorf("HasCriteria = %v, want %v", q.HasCriteria, tt.wantCriteria)
			}
			if q.HasID != tt.wantID {
				t.Errorf("HasID = %v, want %v", q.HasID, tt.wantID)
			}
		})
	}
}

func TestSchemaQueryRestriction(t *testing.T) {
	q := SchemaQuery{Type: SchemaTables, Criteria: []any{nil, nil, "Users", float64(7), true}}
	if got := q.Restriction(2); got != "Users" {
		t.Errorf("Restriction(2) = %q", got)
	}
	if got := q.Restriction(3); got != "7" {
		t.Errorf("Restriction(3) = %q, want 7", got)
	}
	if got := q.Restriction(4); got != "true" {
		t.Errorf("Restriction(4) = %q, want true", got)
	}
	for _, i := range []int{0, 1, 9} {
		if got := q.Restriction(i); got != "" {
			t.Errorf("Restriction(%d) = %q, want empty", i, got)
		}
	}
}
