package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationNames devuelve los scripts embebidos en orden de aplicación.
func MigrationNames() ([]string, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Migrate aplica los scripts pendientes; cada uno en su transacción y registrado en schema_migrations.
func Migrate(ctx context.Context, db beginner, log zerolog.Logger) (int, error) {
	names, err := MigrationNames()
	if err != nil {
		return 0, fmt.Errorf("listar migraciones: %w", err)
	}

	runner := NewTxRunner(db)
	applied := 0
	for _, name := range names {
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("leer %s: %w", name, err)
		}
		var done bool
		err = runner.Run(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `
				CREATE TABLE IF NOT EXISTS schema_migrations (
					name       TEXT PRIMARY KEY,
					applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, string(script)); err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("migración %s: %w", name, err)
		}
		if done {
			applied++
			log.Info().Str("migration", name).Msg("migración aplicada")
		}
	}
	return applied, nil
}
