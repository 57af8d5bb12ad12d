// Package migrations embeds the SQL schema migrations so binaries and
// integration tests apply the same schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
