// Package core provides the types shared by every ADOBridge package.
//
// It defines the provider contract (Provider, Connection, Cursor), the
// provider type codes and their date/binary predicates, the command
// Envelope, and the error taxonomy that maps provider faults to process
// exit codes.
//
// # Type Codes
//
// DataType values are ADO DataTypeEnum codes. Two families get special
// treatment during translation:
//   - IsDate: 7, 64, 133, 134, 135
//   - IsBinary: 128, 204, 205
//
// # Error Taxonomy
//
//	record := core.RecordOf(err)
//	json.NewEncoder(stderr).Encode(record)
//	os.Exit(record.ExitCode())
//
// Exit codes:
//   - 3: malformed envelope
//   - 4: malformed SQL or parameter mismatch
//   - 5: unknown command
//   - 6: driver, provider or connection failure
//   - 9: credential or permission failure
//   - 10: anything else
package core
