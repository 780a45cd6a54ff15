package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) *sql.DB {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return db
}

func migrationsPath(t *testing.T) string {
	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	return filepath.Join(root, "migrations")
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db := getTestDB(t)

	version, err := Run(db, migrationsPath(t))
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	for _, table := range []string{"users", "customers", "products", "warranties", "login_attempts"} {
		require.True(t, tableExists(t, db, table), "table %s should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'warranties'
			AND indexname = 'idx_warranties_number'
		)`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "warranty number index should exist")

	var admins int
	err = db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&admins)
	require.NoError(t, err)
	require.Equal(t, 1, admins)

	// The duration check rejects periods outside 1..60.
	_, err = db.Exec(`INSERT INTO customers (id, name, phone, invoice_number) VALUES (gen_random_uuid(), 'x', '0500000000', 'I')`)
	require.NoError(t, err)
	_, err = db.Exec(`
		WITH p AS (INSERT INTO products (name) VALUES ('p') RETURNING id)
		INSERT INTO warranties (customer_id, product_id, warranty_number, purchase_date,
			warranty_start_date, warranty_end_date, warranty_duration_months)
		SELECT c.id, p.id, 'N-1', NOW(), NOW(), NOW(), 61
		FROM customers c, p`)
	require.Error(t, err)
}

func TestMigrationIdempotency(t *testing.T) {
	db := getTestDB(t)
	path := migrationsPath(t)

	first, err := Run(db, path)
	require.NoError(t, err)
	second, err := Run(db, path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var admins int
	err = db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&admins)
	require.NoError(t, err)
	require.Equal(t, 1, admins)
}
