// Package testdb is the postgres harness for store integration tests: a
// disposable container, a migrator that resets the schema between tests,
// and a count helper for asserting on raw rows.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Credentials struct {
	User     string
	Password string
	DB       string
}

// Postgres points at a running throwaway database.
type Postgres struct {
	Host string
	Port string
}

// StartPostgres boots a disposable postgres container. The returned stop
// function terminates it.
func StartPostgres(ctx context.Context, creds Credentials) (Postgres, func(), error) {
	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:18-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     creds.User,
				"POSTGRES_PASSWORD": creds.Password,
				"POSTGRES_DB":       creds.DB,
			},
			WaitingFor: wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return Postgres{}, nil, fmt.Errorf("start postgres container: %w", err)
	}

	stop := func() { _ = cont.Terminate(ctx) }

	host, err := cont.Host(ctx)
	if err != nil {
		stop()
		return Postgres{}, nil, fmt.Errorf("resolve container host: %w", err)
	}

	port, err := cont.MappedPort(ctx, "5432/tcp")
	if err != nil {
		stop()
		return Postgres{}, nil, fmt.Errorf("resolve mapped port: %w", err)
	}

	return Postgres{Host: host, Port: port.Port()}, stop, nil
}

// Migrator resets the schema so every test starts from the migrations'
// blank state.
type Migrator struct {
	m *migrate.Migrate
}

func NewMigrator(db *sql.DB, folder string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("wrap db for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, "test", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

func (mg *Migrator) Reset(t *testing.T) {
	t.Helper()

	if err := mg.m.Down(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to drop schema: %v", err)
	}
	if err := mg.m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

// Count runs a single-column count query and returns its value.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
