// Package provider opens database connections for the engine.
//
// A Router inspects the Provider key of an ADO connection string and
// hands the string to a native adapter:
//
//	Provider=DuckDB;Data Source=sales.duckdb      -> DuckDB (database/sql)
//	Provider=Microsoft.ACE.OLEDB.12.0;Data Source=c:\data\sales.accdb
//	                                              -> ADODB (COM, Windows only)
//
// Data Sources given as s3:// or http(s):// URLs are first copied into a
// staging filesystem by a Stager and the connection string is rewritten to
// the staged path. Modified S3 files are uploaded again when the
// connection closes.
//
// Memory is a scripted provider used in tests.
package provider
