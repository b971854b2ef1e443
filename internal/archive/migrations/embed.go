package migrations

import "embed"

// FS contains the run archive schema.
//
//go:embed *.sql
var FS embed.FS
