package repos

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies the embedded migrations for the dialect, each version at most once.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	fsys, err := fs.Sub(migrationFS, path.Join("migrations", string(d)))
	if err != nil {
		return fmt.Errorf("open migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(d.goose(), db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
