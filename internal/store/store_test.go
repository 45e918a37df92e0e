package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"stormlightlabs.org/mlbedge/internal/testutils"
)

var (
	testStore   *Store
	testCleanup func()
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testutils.NewPostgresContainer(ctx)
	if err != nil {
		panic("failed to create postgres container: " + err.Error())
	}

	testCleanup = func() {
		if err := container.Terminate(ctx); err != nil {
			panic("failed to terminate container: " + err.Error())
		}
	}

	db, err := sql.Open("pgx", container.ConnStr)
	if err != nil {
		testCleanup()
		panic("failed to open database: " + err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		testCleanup()
		panic("failed to ping database: " + err.Error())
	}

	testStore = &Store{DB: db, dialect: DialectPostgres}
	if err := testStore.Migrate(ctx); err != nil {
		testCleanup()
		panic("failed to run migrations: " + err.Error())
	}

	code := m.Run()
	testCleanup()
	os.Exit(code)
}

func TestMigrateIsIdempotent(t *testing.T) {
	if err := testStore.Migrate(context.Background()); err != nil {
		t.Fatalf("re-running Migrate: %v", err)
	}
}

func TestBindPassesThroughOnPostgres(t *testing.T) {
	query := "SELECT 1 FROM games WHERE id = $1 AND date = $2"
	if got := testStore.Bind(query); got != query {
		t.Errorf("Bind on Postgres dialect rewrote query: got %q want %q", got, query)
	}
}

func TestBindRewritesPlaceholdersForSQLite(t *testing.T) {
	sqliteStore := &Store{dialect: DialectSQLite}
	got := sqliteStore.Bind("SELECT * FROM games WHERE id = $1 AND date = $12")
	want := "SELECT * FROM games WHERE id = ? AND date = ?"
	if got != want {
		t.Errorf("Bind on sqlite dialect: got %q want %q", got, want)
	}
}

func TestSchemaMigrationsTableRecordsEveryMigration(t *testing.T) {
	migrations, err := testStore.loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	for _, m := range migrations {
		applied, err := testStore.isApplied(context.Background(), m.Name)
		if err != nil {
			t.Fatalf("isApplied(%s): %v", m.Name, err)
		}
		if !applied {
			t.Errorf("migration %s not recorded as applied", m.Name)
		}
	}
}
