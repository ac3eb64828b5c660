// Package db embeds the SQL migrations applied at startup.
package db

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed migrations/*.sql
var files embed.FS

// Migration is one embedded schema file. Every statement is idempotent so
// the whole set is applied on each start.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded migrations ordered by file name.
func Migrations() ([]Migration, error) {
	// fs.Glob returns names in lexical order.
	names, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: path.Base(name), SQL: string(b)})
	}
	return out, nil
}
