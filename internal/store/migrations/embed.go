// Package migrations embeds the tele.db schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
