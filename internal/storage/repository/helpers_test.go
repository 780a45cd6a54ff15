package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/warranty-service/internal/migrations"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// setupTestDatabase starts PostgreSQL in a container and applies the schema.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
				wait.ForListeningPort(nat.Port("5432/tcp")),
			).WithDeadline(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	_, err = migrations.Run(storage.DB, filepath.Join(root, "migrations"))
	require.NoError(t, err)
	return storage
}

// testDataFactory inserts fixtures directly through the storage methods.
type testDataFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestDataFactory(t *testing.T, storage *Storage) *testDataFactory {
	return &testDataFactory{t: t, storage: storage}
}

func (f *testDataFactory) product(name string) models.Product {
	var p models.Product
	err := f.storage.DB.QueryRow(
		`INSERT INTO products (name) VALUES ($1) RETURNING id, name, description, created_at`, name).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	require.NoError(f.t, err)
	return p
}

func (f *testDataFactory) user(email, role string) models.User {
	u, err := f.storage.CreateUser(context.Background(), models.User{
		Email: email, FullName: "Test " + role, Role: role, IsActive: true, PasswordHash: "hash",
	})
	require.NoError(f.t, err)
	return u
}

func (f *testDataFactory) warranty(product models.Product, start time.Time, months int) models.Warranty {
	return models.Warranty{
		ProductID:              product.ID,
		WarrantyNumber:         "N-" + uuid.NewString()[:8],
		PurchaseDate:           start,
		WarrantyStartDate:      start,
		WarrantyEndDate:        start.AddDate(0, months, 0),
		WarrantyDurationMonths: months,
		Product:                &product,
	}
}

func (f *testDataFactory) certificate(name, phone, invoice string, userID uuid.UUID, products ...models.Product) (models.Customer, []models.Warranty) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	items := make([]models.Warranty, 0, len(products))
	for _, p := range products {
		items = append(items, f.warranty(p, start, 12))
	}
	c, ws, err := f.storage.IssueCertificate(context.Background(),
		models.Customer{Name: name, Phone: phone, InvoiceNumber: invoice}, items, userID)
	require.NoError(f.t, err)
	return c, ws
}
