package bulk

import "embed"

// Migrations holds the schema for the job store, applied with db.Migrate.
// The queue's own tables are managed separately by the river CLI.
//
//go:embed migrations/*.sql
var Migrations embed.FS
