package migrations

import "embed"

// Files stores the goose SQL migrations for PostgreSQL.
//
//go:embed *.sql
var Files embed.FS
