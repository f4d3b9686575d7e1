// Package assets bundles the SQL migrations shipped with the server binary.
package assets

import (
	"embed"
	"fmt"
	"path"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// MigrationSource opens the migrations for a dialect ("postgres", "sqlite").
// A non-empty dir overrides the embedded copy with <dir>/<dialect> on disk.
func MigrationSource(dialect, dir string) (source.Driver, error) {
	if dir != "" {
		url := fmt.Sprintf("file://%s", filepath.ToSlash(filepath.Join(dir, dialect)))
		return (&file.File{}).Open(url)
	}
	return iofs.New(migrations, path.Join("migrations", dialect))
}
