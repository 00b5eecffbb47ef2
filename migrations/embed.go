// Package migrations embeds the goose SQL migrations.
package migrations

import "embed"

//go:embed core/*.sql
var Core embed.FS
