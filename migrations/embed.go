// Package migrations embeds SQL migration files into the binary.
//
// animplay runs migrations at start-up without needing the SQL files on
// the robot's filesystem: they are compiled into the executable.
package migrations

import (
	"embed"

	"github.com/pepperlife/animcore/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
