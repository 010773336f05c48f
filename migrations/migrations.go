// Package migrations embeds the server schema scripts.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
