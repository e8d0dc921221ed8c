// Package appfs embeds the SQL migrations and the email templates in the binaries.
// templates is embedded with all: so that the _base layouts are kept.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
