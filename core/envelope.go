package core

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Statements holds the "sql" member of an envelope, which is either a
// single statement or a list of them.
type Statements []string

func (s *Statements) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("sql must be a string or an array of strings: %w", err)
	}
	*s = Statements{single}
	return nil
}

func (s Statements) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// Text returns the first statement, or "" when there is none.
func (s Statements) Text() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Envelope is the single request a worker process handles.
type Envelope struct {
	Command     string     `json:"command,omitempty"`
	Connection  string     `json:"connection"`
	SQL         Statements `json:"sql"`
	Scalar      string     `json:"scalar,omitempty"`
	FetchArrays bool       `json:"FetchArrays,omitempty"`
	Type        int        `json:"type,omitempty"`
	Criteria    []any      `json:"criteria,omitempty"`
	ID          string     `json:"id,omitempty"`

	// HasCriteria and HasID record whether the members were present at
	// all; a present null still counts.
	HasCriteria bool `json:"-"`
	HasID       bool `json:"-"`

	hasConnection bool
}

var (
	ErrEnvelopeNotObject = errors.New("envelope must be a JSON object")
	ErrMissingConnection = errors.New("envelope has no connection")
)

type envelopeFields Envelope

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var fields envelopeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if raw, ok := members["connection"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		fields.hasConnection = true
	}
	_, fields.HasCriteria = members["criteria"]
	_, fields.HasID = members["id"]

	*e = Envelope(fields)
	return nil
}

// DecodeEnvelope parses a JSON envelope. Anything but an object with a
// connection member is rejected.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, ErrEnvelopeNotObject
	}
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, err
	}
	if !envelope.hasConnection {
		return Envelope{}, ErrMissingConnection
	}
	return envelope, nil
}

// SchemaQuery returns the schema request carried by the envelope.
func (e Envelope) SchemaQuery() SchemaQuery {
	query := SchemaQuery{Type: SchemaType(e.Type)}
	if e.HasCriteria || e.HasID {
		query.Criteria = e.Criteria
		query.HasCriteria = true
	}
	if e.HasID {
		query.ID = e.ID
		query.HasID = true
	}
	return query
}
