package sqlinline

import _ "embed"

// Schema is the DDL applied by `studioctl migrate`. Statements are idempotent.
//
//go:embed schema.sql
var Schema string
