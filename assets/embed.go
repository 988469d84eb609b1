// assets/embed.go
//
// Files compiled into the binary:
//   - puzzles.json         default puzzle catalog (used when no file is configured)
//   - migrations/*.sql     schema for the sqlite game history

package assets

import (
	"embed"
	"io/fs"
)

//go:embed puzzles.json migrations/*.sql
var FS embed.FS

// Puzzles returns the raw default catalog.
func Puzzles() ([]byte, error) {
	return FS.ReadFile("puzzles.json")
}

// Migrations exposes the migrations directory as its own filesystem root.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "migrations")
	if err != nil {
		// the directory is embedded at compile time
		panic(err)
	}
	return sub
}
