// Package store is the relational persistence abstraction: a single
// interface over two SQL dialects (Postgres via pgx, and an embedded
// pure-Go sqlite fallback via modernc.org/sqlite), uniform parameter
// binding, batched upserts, and the migration runner. Grounded on the
// teacher's internal/db.go embed+lexical-sort migration mechanism,
// generalized to two dialects per the "thin translation layer" design note.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"stormlightlabs.org/mlbedge/internal/core"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Dialect names the SQL engine a Store talks to.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Migration is one named, ordered schema change.
type Migration struct {
	Name    string
	Content string
}

// Exec is satisfied by both *sql.DB and *sql.Tx, letting markApplied run
// inside or outside a transaction.
type Exec interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// Store wraps a database connection with dialect-aware migration and
// batch-write helpers. All call sites write Postgres-style "$1,$2,..."
// placeholders; Bind rewrites them for sqlite.
type Store struct {
	*sql.DB
	dialect Dialect

	// Cache is an optional read-through cache for lookups that are
	// re-derived identically many times within one pipeline run (a
	// pitcher's throwing hand is read once per opposing batter). Nil
	// means every lookup goes straight to the database.
	Cache HandednessCache
}

// OpenPostgres opens the primary Postgres-backed store.
func OpenPostgres(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, core.NewSchemaError("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, core.NewSchemaError("ping", err)
	}
	return &Store{DB: db, dialect: DialectPostgres}, nil
}

// OpenEmbedded opens the local, pure-Go sqlite fallback used for init,
// development, and CI where no Postgres server is available.
func OpenEmbedded(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.NewSchemaError("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, core.NewSchemaError("ping", err)
	}
	return &Store{DB: db, dialect: DialectSQLite}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Bind rewrites "$1, $2, ..." placeholders to "?" for sqlite; Postgres
// queries pass through unchanged. Every call site writes $N placeholders
// and calls Bind once before executing, so query text never branches on
// dialect.
func (s *Store) Bind(query string) string {
	if s.dialect != DialectSQLite {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			i++
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// translateDDL rewrites Postgres-only DDL tokens for sqlite. This is the
// one place schema text is dialect-sensitive; everything else (DML) is
// covered by Bind.
func translateDDL(dialect Dialect, content string) string {
	if dialect != DialectSQLite {
		return content
	}
	replacer := strings.NewReplacer(
		"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"NOW()", "CURRENT_TIMESTAMP",
		"DOUBLE PRECISION", "REAL",
	)
	return replacer.Replace(content)
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if s.dialect == DialectPostgres {
		query = strings.Replace(query, "id INTEGER PRIMARY KEY,", "id SERIAL PRIMARY KEY,", 1)
	}
	_, err := s.ExecContext(ctx, query)
	return err
}

func (s *Store) isApplied(ctx context.Context, name string) (bool, error) {
	var exists bool
	query := s.Bind(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`)
	err := s.QueryRowContext(ctx, query, name).Scan(&exists)
	return exists, err
}

func markApplied(ctx context.Context, exec Exec, bind func(string) string, name string) error {
	query := bind(`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`)
	_, err := exec.ExecContext(ctx, query, name, time.Now().UTC())
	return err
}

func (s *Store) loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		content, err := migrationFiles.ReadFile("sql/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, Content: translateDDL(s.dialect, string(content))})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })
	return migrations, nil
}

// Migrate runs all pending migrations, one transaction per migration.
// Re-running Migrate against an already-migrated database is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return core.NewSchemaError("ensure_migrations_table", err)
	}

	migrations, err := s.loadMigrations()
	if err != nil {
		return core.NewSchemaError("load_migrations", err)
	}
	if len(migrations) == 0 {
		return core.NewSchemaError("load_migrations", fmt.Errorf("no migration files found"))
	}

	for _, migration := range migrations {
		applied, err := s.isApplied(ctx, migration.Name)
		if err != nil {
			return core.NewSchemaError("check_applied:"+migration.Name, err)
		}
		if applied {
			continue
		}

		tx, err := s.BeginTx(ctx, nil)
		if err != nil {
			return core.NewSchemaError("begin_tx:"+migration.Name, err)
		}

		if _, err := tx.ExecContext(ctx, migration.Content); err != nil {
			tx.Rollback()
			return core.NewSchemaError("exec:"+migration.Name, err)
		}

		if err := markApplied(ctx, tx, s.Bind, migration.Name); err != nil {
			tx.Rollback()
			return core.NewSchemaError("mark_applied:"+migration.Name, err)
		}

		if err := tx.Commit(); err != nil {
			return core.NewSchemaError("commit:"+migration.Name, err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
