package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge/core"
	"github.com/nickyhof/ADOBridge/ps"
)

var ErrMultipleStatements = errors.New("execute accepts a single statement")

// Handler runs one command against an open session and returns the
// document to write to the output channel.
type Handler func(engine *Engine, session *Session) (any, error)

// DefaultCommands returns the built-in command table.
func DefaultCommands() map[string]Handler {
	return map[string]Handler{
		"execute":     executeCommand,
		"transaction": transactionCommand,
		"query":       queryCommand,
		"query_v2":    queryV2Command,
		"schema":      schemaCommand,
	}
}

type Engine struct {
	provider   core.Provider
	translator *Translator
	commands   map[string]Handler
	logger     *log.Logger
	journal    *ps.Journal
	identity   core.Identity
}

type Option func(*Engine)

// WithLogger sets the diagnostic logger. The default discards.
func WithLogger(logger *log.Logger) Option {
	return func(engine *Engine) { engine.logger = logger }
}

// WithCommands replaces the command table.
func WithCommands(commands map[string]Handler) Option {
	return func(engine *Engine) { engine.commands = commands }
}

// WithTranslator replaces the default translator, which decodes binary
// fields with the default charset.
func WithTranslator(translator *Translator) Option {
	return func(engine *Engine) { engine.translator = translator }
}

// WithJournal records successful write commands, committed as identity.
func WithJournal(journal *ps.Journal, identity core.Identity) Option {
	return func(engine *Engine) {
		engine.journal = journal
		engine.identity = identity
	}
}

func NewEngine(provider core.Provider, opts ...Option) *Engine {
	engine := &Engine{
		provider: provider,
		commands: DefaultCommands(),
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.translator == nil {
		decoder, err := core.NewDecoder(core.DefaultCharset)
		if err != nil {
			panic(err)
		}
		engine.translator = NewTranslator(decoder)
	}
	return engine
}

func (engine *Engine) Translator() *Translator {
	return engine.translator
}

// Commands returns the registered command names, sorted.
func (engine *Engine) Commands() []string {
	names := make([]string, 0, len(engine.commands))
	for name := range engine.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run handles one request: it decodes payload, dispatches it and writes
// exactly one JSON document, the result to stdout or an error record to
// stderr. The return value is the process exit code. command takes
// precedence over the envelope's own command member.
func (engine *Engine) Run(ctx context.Context, command string, payload []byte, stdout, stderr io.Writer) int {
	envelope, err := core.DecodeEnvelope(payload)
	if err != nil {
		return engine.fail(stderr, core.EnvelopeError(err))
	}
	if command == "" {
		command = envelope.Command
	}

	result, err := engine.Dispatch(ctx, command, envelope)
	if err != nil {
		return engine.fail(stderr, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return engine.fail(stderr, err)
	}
	if _, err := stdout.Write(data); err != nil {
		engine.logger.Printf("write result: %v", err)
		return core.ExitGeneric
	}
	return core.ExitOK
}

// fail writes the error record for err and returns its exit code.
func (engine *Engine) fail(stderr io.Writer, err error) int {
	record := core.RecordOf(err)
	engine.logger.Printf("failed: %s (exit %d): %v", record.Kind(), record.ExitCode(), err)

	data, merr := json.Marshal(record)
	if merr != nil {
		engine.logger.Printf("encode error record: %v", merr)
		return record.ExitCode()
	}
	if _, werr := stderr.Write(data); werr != nil {
		engine.logger.Printf("write error record: %v", werr)
	}
	return record.ExitCode()
}

// Dispatch runs command against a fresh connection. The connection and
// any cursor opened by the handler are released before it returns, on
// every path.
func (engine *Engine) Dispatch(ctx context.Context, command string, envelope core.Envelope) (result any, err error) {
	handler, ok := engine.commands[command]
	if !ok {
		return nil, core.UnknownCommand(command)
	}

	defer func() {
		if r := recover(); r != nil {
			engine.logger.Printf("%s: panic: %v\n%s", command, r, debug.Stack())
			result, err = nil, core.ScriptError("%v", r)
		}
	}()

	engine.logger.Printf("%s: opening connection", command)
	conn, err := engine.provider.Open(ctx, envelope.Connection)
	if err != nil {
		return nil, err
	}

	session := &Session{Command: command, Envelope: envelope, conn: conn}
	defer func() {
		if rerr := session.release(); rerr != nil {
			engine.logger.Printf("%s: release: %v", command, rerr)
		}
	}()

	result, err = handler(engine, session)
	if err != nil {
		return nil, err
	}
	engine.logger.Printf("%s: ok", command)
	return result, nil
}

// record appends successful statements to the journal. Journal failures
// never fail the command.
func (engine *Engine) record(command string, statements []string) {
	if engine.journal == nil || len(statements) == 0 {
		return
	}
	txn, err := engine.journal.Record(engine.identity, ps.Entry{Command: command, Statements: statements})
	if err != nil {
		engine.logger.Printf("%s: journal: %v", command, err)
		return
	}
	engine.logger.Printf("%s: journal %s", command, txn.Id)
}

// Session is the connection a handler runs against, together with the
// cursor it opened. Both are released once, cursor first.
type Session struct {
	Command  string
	Envelope core.Envelope

	conn     core.Connection
	cursor   core.Cursor
	released bool
}

func (session *Session) Connection() core.Connection {
	return session.conn
}

func (session *Session) track(cursor core.Cursor, err error) (core.Cursor, error) {
	if err != nil {
		return nil, err
	}
	if session.cursor != nil {
		session.cursor.Close()
	}
	session.cursor = cursor
	return cursor, nil
}

// OpenCursor opens a read-only cursor owned by the session.
func (session *Session) OpenCursor(sql string) (core.Cursor, error) {
	return session.track(session.conn.OpenCursor(sql))
}

// OpenSchema opens a schema cursor owned by the session.
func (session *Session) OpenSchema(query core.SchemaQuery) (core.Cursor, error) {
	return session.track(session.conn.OpenSchema(query))
}

func (session *Session) release() error {
	if session.released {
		return nil
	}
	session.released = true

	var errs []error
	if session.cursor != nil {
		if err := session.cursor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cursor: %w", err))
		}
		session.cursor = nil
	}
	if err := session.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}

func executeCommand(engine *Engine, session *Session) (any, error) {
	env := session.Envelope
	if len(env.SQL) > 1 {
		return nil, fmt.Errorf("%w, got %d", ErrMultipleStatements, len(env.SQL))
	}
	if err := session.Connection().Execute(env.SQL.Text()); err != nil {
		return nil, err
	}
	engine.record(session.Command, env.SQL)

	if env.Scalar == "" {
		return []any{}, nil
	}
	cursor, err := session.OpenCursor(env.Scalar)
	if err != nil {
		return nil, err
	}
	result, err := engine.translator.Rows(cursor)
	if err != nil {
		return nil, err
	}
	return result.ResultSet, nil
}

func transactionCommand(engine *Engine, session *Session) (any, error) {
	conn := session.Connection()
	statements := session.Envelope.SQL

	if err := conn.BeginTrans(); err != nil {
		return nil, err
	}
	rollback := func(cause error) error {
		if err := conn.RollbackTrans(); err != nil {
			engine.logger.Printf("%s: rollback: %v", session.Command, err)
			return errors.Join(cause, err)
		}
		return cause
	}

	for i, stmt := range statements {
		if err := conn.Execute(stmt); err != nil {
			engine.logger.Printf("%s: statement %d failed, rolling back", session.Command, i+1)
			return nil, rollback(err)
		}
	}
	if err := conn.CommitTrans(); err != nil {
		return nil, rollback(err)
	}
	engine.record(session.Command, statements)
	return []any{}, nil
}

func queryCommand(engine *Engine, session *Session) (any, error) {
	cursor, err := session.OpenCursor(session.Envelope.SQL.Text())
	if err != nil {
		return nil, err
	}
	result, err := engine.translator.Rows(cursor)
	if err != nil {
		return nil, err
	}
	return result.ResultSet, nil
}

func queryV2Command(engine *Engine, session *Session) (any, error) {
	cursor, err := session.OpenCursor(session.Envelope.SQL.Text())
	if err != nil {
		return nil, err
	}
	if session.Envelope.FetchArrays {
		return engine.translator.Columns(cursor)
	}
	return engine.translator.Rows(cursor)
}

func schemaCommand(engine *Engine, session *Session) (any, error) {
	cursor, err := session.OpenSchema(session.Envelope.SchemaQuery())
	if err != nil {
		return nil, err
	}
	result, err := engine.translator.Rows(cursor)
	if err != nil {
		return nil, err
	}
	return result.ResultSet, nil
}
