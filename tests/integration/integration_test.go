//go:build integration

// Package integration exercises the repository layer against a real
// PostgreSQL instance started with testcontainers.
package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/party"
	"github.com/sipmarket/sipmarket/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sipmarket"),
		tcpostgres.WithUsername("sipmarket"),
		tcpostgres.WithPassword("sipmarket"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = repository.NewPool(ctx, connStr)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

// resetTables empties every table so tests start from a clean slate.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := pool.Exec(t.Context(), `
		TRUNCATE buyer_orders, seller_orders, orders, cart_entries, products, buyers, sellers
	`)
	require.NoError(t, err)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedParties inserts one seller and one buyer and returns their repositories.
func seedParties(t *testing.T) (*repository.SellerRepository, *repository.BuyerRepository) {
	t.Helper()

	sellers := repository.NewSellerRepository(pool)
	require.NoError(t, sellers.Create(t.Context(), party.Seller{
		ID:              "s1",
		Name:            "Klaus",
		Surname:         "Weber",
		Email:           "seller@example.com",
		Title:           "Mosel Cellars",
		City:            "Trier",
		Country:         "DE",
		TargetedMarkets: []string{"DE", "NL"},
		DeliveryCost:    money("6.90"),
		MinPrice:        money("20.00"),
	}))

	buyers := repository.NewBuyerRepository(pool)
	require.NoError(t, buyers.Create(t.Context(), party.Buyer{
		ID:      "b1",
		Name:    "Alice",
		Surname: "Martin",
		Email:   "buyer@example.com",
		City:    "Berlin",
		Country: "DE",
	}))

	return sellers, buyers
}

func seedProduct(t *testing.T, products *repository.ProductRepository, id string, price string, stock int) catalog.Product {
	t.Helper()
	p := catalog.Product{
		ID:        id,
		Title:     "Product " + id,
		Category:  "wine",
		Size:      "0.75l",
		Packaging: "glass bottle",
		Price:     money(price),
		Stock:     stock,
		SellerID:  "s1",
	}
	require.NoError(t, products.Upsert(t.Context(), p))
	return p
}
