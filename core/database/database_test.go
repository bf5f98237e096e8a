package database

import (
	"strings"
	"testing"
	"testing/fstest"

	coreconfig "github.com/m3rciful/menacebot/core/config"
)

func TestFromCoreAndURLs(t *testing.T) {
	cfg := &coreconfig.Config{
		Store: coreconfig.StoreConfig{Driver: coreconfig.StorePostgres},
		Database: coreconfig.DatabaseConfig{
			Host: "db", Port: "5432", User: "menace", Password: "p@ss", Name: "bot", SSLMode: "disable",
		},
	}
	dc := FromCore(cfg)
	if dc.SQLDriver() != "postgres" {
		t.Fatalf("sql driver = %q", dc.SQLDriver())
	}
	if got := dc.MigrateURL(); got != "postgres://menace:p%40ss@db:5432/bot?sslmode=disable" {
		t.Fatalf("migrate url = %q", got)
	}
	if strings.Contains(dc.Target(), "p@ss") {
		t.Fatalf("target leaks password: %q", dc.Target())
	}

	lite := Config{Driver: DriverSQLite, Path: "/data/bot_state.db"}
	if lite.SQLDriver() != "sqlite" {
		t.Fatalf("sqlite driver = %q", lite.SQLDriver())
	}
	if got := lite.MigrateURL(); got != "sqlite:///data/bot_state.db" {
		t.Fatalf("sqlite migrate url = %q", got)
	}
	if !strings.HasPrefix(lite.DSN(), "file:/data/bot_state.db?") {
		t.Fatalf("sqlite dsn = %q", lite.DSN())
	}
}

func TestMemoryDriverIsNoop(t *testing.T) {
	db, err := Connect(Config{Driver: DriverMemory})
	if err != nil || db != nil {
		t.Fatalf("Connect(memory) = %v, %v", db, err)
	}
	if err := RunMigrations(Config{Driver: DriverMemory}, nil); err != nil {
		t.Fatalf("RunMigrations(memory) = %v", err)
	}
}

func TestSelectApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_sessions.up.sql":       {Data: []byte("SELECT 1;")},
		"0001_sessions.down.sql":     {Data: []byte("SELECT 1;")},
		"0002_reply_routes.up.sql":   {Data: []byte("SELECT 1;")},
		"0003_submission_ref.up.sql": {Data: []byte("SELECT 1;")},
	}
	files := listMigrationFiles(fsys)
	if len(files) != 3 {
		t.Fatalf("files = %v", files)
	}
	got := selectApplied(files, 1, 3)
	if len(got) != 2 || got[0] != "0002_reply_routes.up.sql" {
		t.Fatalf("applied = %v", got)
	}
	if selectApplied(files, 3, 3) != nil {
		t.Fatal("no change should select nothing")
	}
}
