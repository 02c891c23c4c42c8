// Package migrations exposes the embedded attempt ledger schema per SQL
// dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	checkout "github.com/goliatone/go-checkout"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	SourceLabel = "go-checkout"

	rootPath = "data/sql/migrations"
)

// Source is the migration tree for one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc receives each selected source, typically to hand it to a
// persistence client.
type RegisterFunc func(ctx context.Context, source Source) error

// Sources resolves the dialect trees of root, or of the embedded tree when
// root is nil. Postgres files live at the root and sqlite variants under
// sqlite/.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = checkout.GetMigrationsFS()
	}
	base, err := fs.Sub(root, rootPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite tree: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: rootPath, FS: base},
		{Dialect: DialectSQLite, Path: rootPath + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, source := range sources {
		matches, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", source.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s tree %q has no *.up.sql files", source.Dialect, source.Path)
		}
	}
	return sources, nil
}

func ForDialect(dialect string) (fs.FS, error) {
	source, err := sourceFor(nil, dialect)
	if err != nil {
		return nil, err
	}
	return source.FS, nil
}

// Register calls registerFn for every requested dialect, in the order given.
// With no dialects every embedded source is registered.
func Register(ctx context.Context, registerFn RegisterFunc, dialects ...string) ([]Source, error) {
	if registerFn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	sources, err := Sources(nil)
	if err != nil {
		return nil, err
	}
	if len(dialects) > 0 {
		selected := make([]Source, 0, len(dialects))
		for _, dialect := range dialects {
			source, err := sourceFor(sources, dialect)
			if err != nil {
				return nil, err
			}
			selected = append(selected, source)
		}
		sources = selected
	}
	for _, source := range sources {
		if err := registerFn(ctx, source); err != nil {
			return nil, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
	}
	return sources, nil
}

func sourceFor(sources []Source, dialect string) (Source, error) {
	if sources == nil {
		var err error
		if sources, err = Sources(nil); err != nil {
			return Source{}, err
		}
	}
	target := strings.TrimSpace(strings.ToLower(dialect))
	for _, source := range sources {
		if source.Dialect == target {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}
