package store

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestUpMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.up.sql":  {Data: []byte("SELECT 2")},
		"001_first.up.sql":   {Data: []byte("SELECT 1")},
		"001_first.down.sql": {Data: []byte("SELECT -1")},
		"README.md":          {Data: []byte("notes")},
		"010_tenth.up.sql":   {Data: []byte("SELECT 10")},
	}

	files, err := upMigrations(fsys)
	if err != nil {
		t.Fatalf("upMigrations error = %v", err)
	}

	want := []string{"001_first.up.sql", "002_second.up.sql", "010_tenth.up.sql"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestMigrations_Embedded(t *testing.T) {
	files, err := upMigrations(Migrations())
	if err != nil {
		t.Fatalf("upMigrations error = %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}

	events, err := fs.ReadFile(Migrations(), files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(events), "CREATE TABLE IF NOT EXISTS events") {
		t.Errorf("first migration should create the events table:\n%s", events)
	}

	pending, err := fs.ReadFile(Migrations(), files[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(pending), "pending_timestamps") {
		t.Errorf("second migration should create pending_timestamps:\n%s", pending)
	}
}

func TestNewRedis_InvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Error("expected error for an invalid redis URL")
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Error("empty string should map to NULL")
	}
	if v := nullable("APPLICATION_LOG"); v == nil || *v != "APPLICATION_LOG" {
		t.Errorf("nullable(APPLICATION_LOG) = %v", v)
	}
	if deref(nil) != "" {
		t.Error("deref(nil) should be empty")
	}
}
