package sellers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-digital-market/internal/postgres"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("Integration test - requires POSTGRES_TEST_DSN")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, dsn, postgres.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgres.Migrate(ctx, db))
	_, err = db.Exec(ctx, `TRUNCATE orders, reviews, products, sellers RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestRepo_RegisterLoginAndSales(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	svc, err := NewService(&Repo{DB: db}, bcrypt.MinCost, zerolog.Nop())
	require.NoError(t, err)

	s, err := svc.Register(ctx, Registration{Username: "nova", Email: "nova@example.com", Password: "12345678", CardNumber: "4111111111111111"})
	require.NoError(t, err)
	assert.Positive(t, s.ID)

	_, err = svc.Register(ctx, Registration{Username: "nova", Email: "other@example.com", Password: "12345678"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, svc.RecordSale(ctx, s.ID))
	require.NoError(t, svc.RecordSale(ctx, s.ID))
	assert.ErrorIs(t, svc.RecordSale(ctx, s.ID+100), ErrNotFound)

	got, err := svc.Login(ctx, "nova@example.com", "12345678")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSales)
	assert.Equal(t, "4111111111111111", got.CardNumber)
	assert.True(t, got.Rating.IsZero())

	_, err = svc.Login(ctx, "nova@example.com", "87654321")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
