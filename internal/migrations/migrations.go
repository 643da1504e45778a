// Package migrations embeds the goose SQL migrations for the CRM schema.
package migrations

import "embed"

// FS holds every *.sql migration, applied in version order.
//
//go:embed *.sql
var FS embed.FS
