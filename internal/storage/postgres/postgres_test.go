package postgres

import "testing"

func TestSplitSQLStatements(t *testing.T) {
	got := splitSQLStatements("CREATE TABLE a (id TEXT);\n\n  ;CREATE INDEX b ON a (id);\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/001_init.up.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	if len(splitSQLStatements(string(b))) == 0 {
		t.Fatalf("expected statements in initial migration")
	}
}
