// Package ps provides the statement journal for ADOBridge.
//
// The journal is backed by Git, using go-git for storage. Every
// successful write command appends its statements to
// journal/<command>.sql and creates a Git commit authored by the
// configured identity, so the history of changes made through the
// worker can be inspected with ordinary Git tooling.
//
// # Memory Journal
//
// For testing:
//
//	journal, err := ps.NewMemoryJournal()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Journal
//
// For a journal that survives the process:
//
//	journal, err := ps.NewFileJournal("/path/to/journal")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	txn, _ := journal.Record(identity, ps.Entry{
//	    Command:    "transaction",
//	    Statements: []string{"UPDATE t SET x = 1", "DELETE FROM u"},
//	})
package ps
