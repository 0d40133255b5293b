package provider

import (
	"context"
	"testing"

	"github.com/nickyhof/ADOBridge/core"
)

func TestMemoryTransactions(t *testing.T) {
	m := NewMemory()
	conn, err := m.Open(context.Background(), "Provider=Memory")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Execute("A")
	conn.BeginTrans()
	conn.Execute("B")
	conn.RollbackTrans()
	conn.BeginTrans()
	conn.Execute("C")
	conn.CommitTrans()

	stats := m.Stats()
	if len(stats.Executed) != 3 {
		t.Errorf("Expected 3 executed statements, got %v", stats.Executed)
	}
	if len(stats.Committed) != 2 || stats.Committed[0] != "A" || stats.Committed[1] != "C" {
		t.Errorf("Expected A and C committed, got %v", stats.Committed)
	}
	if stats.Rollbacks != 1 || stats.Commits != 1 {
		t.Errorf("Expected one rollback and one commit, got %d %d", stats.Rollbacks, stats.Commits)
	}
}

func TestMemoryCounts(t *testing.T) {
	m := NewMemory()
	m.AddResult("SELECT 1", Table{Columns: []Column{{Name: "X", Type: core.IntegerType}}, Rows: [][]any{{int32(1)}}})

	conn, _ := m.Open(context.Background(), "")
	cursor, err := conn.OpenCursor("  SELECT\n1 ")
	if err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}
	cursor.Close()
	cursor.Close()
	conn.Close()
	conn.Close()

	stats := m.Stats()
	if stats.CursorsOpened != 1 || stats.CursorsClosed != 1 {
		t.Errorf("Expected one cursor opened and closed, got %d %d", stats.CursorsOpened, stats.CursorsClosed)
	}
	if stats.ConnectionsOpened != 1 || stats.ConnectionsClosed != 1 {
		t.Errorf("Expected one connection opened and closed, got %d %d", stats.ConnectionsOpened, stats.ConnectionsClosed)
	}
	if stats.DoubleCloses != 2 {
		t.Errorf("Expected 2 double closes, got %d", stats.DoubleCloses)
	}
}

func TestMemoryFailures(t *testing.T) {
	m := NewMemory()
	m.Fail("DROP TABLE X", core.NewProviderError(core.CodeItemNotFound, "no X"))

	conn, _ := m.Open(context.Background(), "")
	defer conn.Close()

	err := conn.Execute("DROP TABLE X")
	record := core.RecordOf(err)
	if record.Code == nil || *record.Code != core.CodeItemNotFound {
		t.Errorf("Expected scripted code, got %+v", record)
	}
	if _, err := conn.OpenCursor("SELECT unknown"); err == nil {
		t.Error("Expected unknown query to fail")
	}
	if _, err := conn.OpenSchema(core.SchemaQuery{Type: core.SchemaViews}); err == nil {
		t.Error("Expected unregistered schema to fail")
	}
}
