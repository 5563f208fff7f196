// Package migrations embeds the portal schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
