// Package db provides the command engine for ADOBridge.
//
// The Engine type is the main entry point. It decodes one command
// envelope, opens a connection through a core.Provider, runs the named
// command and writes exactly one JSON document: the result on the output
// channel, or an error record on the error channel.
//
// # Engine Usage
//
//	engine := db.NewEngine(provider.NewRouter(nil), db.WithLogger(logger))
//	code := engine.Run(ctx, "query", payload, os.Stdout, os.Stderr)
//	os.Exit(code)
//
// # Commands
//
//   - execute: runs one statement; with "scalar" set, also returns the rows
//     of the scalar query
//   - transaction: runs a list of statements atomically
//   - query: returns the rows of a query as a bare array
//   - query_v2: returns a RecordResult, or an ArrayResult when FetchArrays
//     is set
//   - schema: returns the rows of an OpenSchema call
//
// # Result Types
//
// There are two result types:
//   - RecordResult: one object per row, keys in field order
//   - ArrayResult: field names and types once, then one array per row
//
// Text is trimmed in ArrayResult rows and left as reported in
// RecordResult rows.
package db
