package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgpkg "github.com/enesgulerml/titanic-mlops-k8s/pkg/postgres"
)

// PostgresImage is the server version the audit schema is tested against.
const PostgresImage = "postgres:16-alpine"

// PostgresContainer is a throwaway audit database.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts PostgreSQL and opens a pool through the same
// constructor the server uses. Defer Cleanup.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	container, err := tcpostgres.Run(ctx, PostgresImage,
		tcpostgres.WithDatabase("titanic"),
		tcpostgres.WithUsername("titanic"),
		tcpostgres.WithPassword("titanic"),
		// The server logs readiness once for initdb and again for the real start.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	pc := &PostgresContainer{Container: container}
	pc.DSN, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pc.Cleanup(t)
		require.NoError(t, err, "postgres connection string")
	}

	pc.Pool, err = pgpkg.NewPool(ctx, pgpkg.Config{URL: pc.DSN, MaxConns: 4})
	if err != nil {
		pc.Cleanup(t)
		require.NoError(t, err, "open postgres pool")
	}
	return pc
}

// Cleanup closes the pool and terminates the container.
func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()
	if pc.Pool != nil {
		pc.Pool.Close()
	}
	if pc.Container != nil {
		terminate(t, "postgres", pc.Container)
	}
}

func terminate(t *testing.T, name string, c testcontainers.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Terminate(ctx); err != nil {
		t.Logf("terminate %s container: %v", name, err)
	}
}
