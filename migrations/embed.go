// Package migrations embeds the SQL migration files into the binary.
//
// Each supported dialect has its own directory; the database package picks
// the one matching the open connection.
package migrations

import (
	"embed"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
