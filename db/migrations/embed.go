// Package migrations embeds the SQLite schema migrations for the sqlite backend.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
