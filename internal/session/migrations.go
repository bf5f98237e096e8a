package session

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrations returns the schema files for driver ("sqlite" or "postgres").
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("session: no migrations for driver %q", driver)
	}
	return fs.Sub(migrationFiles, "migrations/"+driver)
}
