// Package pgtest runs the postgres store against a disposable container.
package pgtest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/config"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image    = "postgres:16-alpine"
	user     = "gateway"
	password = "gateway"
	dbName   = "gateway_test"
)

// Database is a migrated postgres owned by one test (or suite).
type Database struct {
	DB *postgres.DB
}

// Start boots the container, connects and migrates. The container is torn
// down through t.Cleanup, so callers never terminate it themselves.
func Start(t testing.TB) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       dbName,
			},
			// postgres logs readiness twice: once for the init run, once for real.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
				wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	cfg := containerConfig(ctx, t, container)
	db, err := postgres.Connect(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "connect to %s:%d", cfg.Host, cfg.Port)
	t.Cleanup(db.Close)

	require.NoError(t, postgres.Migrate(ctx, db))
	return &Database{DB: db}
}

func containerConfig(ctx context.Context, t testing.TB, c testcontainers.Container) *config.DatabaseConfig {
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            user,
		Password:        password,
		Name:            dbName,
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 10 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// Reset empties every table the migrations created.
func (d *Database) Reset(t testing.TB) {
	t.Helper()
	ctx := context.Background()

	rows, err := d.DB.Pool.Query(ctx, `SELECT tablename FROM pg_tables WHERE schemaname = current_schema()`)
	require.NoError(t, err)
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)
	if len(tables) == 0 {
		return
	}

	quoted := make([]string, len(tables))
	for i, name := range tables {
		quoted[i] = pgx.Identifier{name}.Sanitize()
	}
	_, err = d.DB.Pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(quoted, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}
