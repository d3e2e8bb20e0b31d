package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	pgOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	pgConfig    config.Database
	pgErr       error
)

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	container, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase("hangout"),
		postgres.WithUsername("test_hangout"),
		postgres.WithPassword("test_hangout"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return nil, err
	}
	return container, nil
}

// PostgresPool starts (once per test binary) a migrated Postgres container and
// returns a fresh pool to it. Tests are skipped when Docker is unavailable.
func PostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		ctx := context.Background()
		pgContainer, pgErr = preparePostgresContainer(ctx)
		if pgErr != nil {
			return
		}
		host, _ := pgContainer.Host(ctx)
		port, _ := pgContainer.MappedPort(ctx, "5432/tcp")
		log.Infof("Postgres container started at %s:%d", host, port.Int())

		pgConfig = config.Database{
			Host:   host,
			Port:   port.Int(),
			User:   "test_hangout",
			Pass:   "test_hangout",
			Name:   "hangout",
			Schema: "hangout",
		}
		pgErr = database.Migrate(pgConfig)
	})
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}

	pool, err := database.Open(context.Background(), pgConfig)
	if err != nil {
		t.Fatalf("Failed to open database connection: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// TruncateDocuments removes every stored document.
func TruncateDocuments(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE documents"); err != nil {
		t.Fatalf("Failed to truncate documents: %v", err)
	}
}

// TerminatePostgres stops the shared container, if one was started. Call it from TestMain.
func TerminatePostgres() {
	if pgContainer == nil {
		return
	}
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

// findProjectRoot walks up from the working directory to the directory holding go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, ".git")) || fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
