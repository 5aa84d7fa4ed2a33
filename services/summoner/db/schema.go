package db

import (
	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Schema holds the profile, acquisition and failure tables.
//
//go:embed schema.sql
var Schema string
