// Package ADOBridge runs SQL against file-based databases for a host
// process that speaks JSON over standard streams.
//
// One worker invocation handles one command envelope: it opens a
// connection through a provider (ADODB on Windows, DuckDB anywhere),
// runs the command, translates the resulting recordset into a portable
// JSON shape and exits with a code the host can branch on.
//
// # Quick Start
//
//	router, _ := provider.NewDefaultRouter(nil)
//	engine, _ := ADOBridge.Open(router).Engine()
//
//	payload := []byte(`{"connection":"Provider=DuckDB;Data Source=sales.duckdb","sql":"SELECT 1 AS X"}`)
//	code := engine.Run(ctx, "query", payload, os.Stdout, os.Stderr)
//	// stdout: [{"X":1}]
//
// # Commands
//
//   - execute, transaction: run statements, return []
//   - query: bare array of row objects
//   - query_v2: {"type":false,...} rows or {"type":true,...} columns
//   - schema: rows of an OpenSchema call
//
// # Exit Codes
//
//   - 0: success
//   - 3: malformed envelope
//   - 4: SQL or parameter error
//   - 5: unknown command or script error
//   - 6: provider or connection error
//   - 9: authentication or permission error
//   - 10: any other database error
package ADOBridge
