// Package migrations holds the embedded SQL schema for the sqlite key-value store.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
