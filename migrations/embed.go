// Package migrations holds the versioned schema of the leaks table, one directory per database type.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
