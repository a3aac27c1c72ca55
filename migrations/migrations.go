// Package migrations embeds the versioned SQL schema of each service.
//
// Files follow the golang-migrate naming scheme
// <version>_<title>.<up|down>.sql and are applied in ascending version order.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed auth/*.sql catalog/*.sql
var files embed.FS

// Auth returns the auth service migrations.
func Auth() fs.FS { return sub("auth") }

// Catalog returns the catalog service migrations.
func Catalog() fs.FS { return sub("catalog") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// dir is a compile-time constant matched by the embed pattern.
		panic(err)
	}
	return f
}
