package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedFS_ContainsMigrationFiles(t *testing.T) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to read embedded FS: %v", err)
	}

	found := false
	for _, entry := range entries {
		if entry.Name() == "001_initial_schema.sql" {
			found = true
		}
		if !strings.HasSuffix(entry.Name(), ".sql") {
			t.Errorf("unexpected file %q in embedded FS", entry.Name())
		}
	}
	if !found {
		t.Error("001_initial_schema.sql not found in embedded FS")
	}
}

func TestEmbeddedFS_RunsSchema(t *testing.T) {
	content, err := FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}
	sql := string(content)

	for _, want := range []string{
		"-- +goose Up",
		"-- +goose Down",
		"CREATE TABLE runs",
		"DROP TABLE",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("migration missing %q", want)
		}
	}
	if strings.Index(sql, "-- +goose Up") > strings.Index(sql, "-- +goose Down") {
		t.Error("Down section precedes Up section")
	}
}
