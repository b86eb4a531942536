// Package migrations compiles the SQLite schema into the binary.
//
// Importing it for side effects registers the files with the database
// package, so the sqlite storage backend works from a bare executable.
package migrations

import (
	"embed"

	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
