// Package db carries the SQL migrations applied to the catalog database.
package db

import "embed"

// Migrations holds the schema files. The *.up.sql files are applied in lexical order by
// store.Migrate; the *.down.sql files are shipped for manual rollback only.
//
//go:embed migrations/*.sql
var Migrations embed.FS
