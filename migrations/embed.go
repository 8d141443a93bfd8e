// Package migrations holds the SQL schema for the device change history.
// Importing it for side effects points the database package at the
// embedded files:
//
//	import _ "github.com/nerrad567/ha-discovery/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/ha-discovery/internal/infrastructure/database"
)

//go:embed *.sql
var sqlFiles embed.FS

func init() {
	database.MigrationsFS = sqlFiles
	database.MigrationsDir = "."
}
