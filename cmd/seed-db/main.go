// Command seed-db loads a development fixture of sellers, buyers, and
// products into the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/domain/party"
	"github.com/sipmarket/sipmarket/internal/repository"
)

type sellerJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	Email           string          `json:"email"`
	Title           string          `json:"title"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	Country         string          `json:"country"`
	Phone           string          `json:"phone"`
	Website         string          `json:"website"`
	CompanyType     string          `json:"companyType"`
	RegisterNumber  int64           `json:"registerNumber"`
	TargetedMarkets []string        `json:"targetedMarkets"`
	DeliveryCost    decimal.Decimal `json:"deliveryCost"`
	MinPrice        decimal.Decimal `json:"minPrice"`
}

type buyerJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

type productJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Size      string          `json:"size"`
	Packaging string          `json:"packaging"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	SellerID  string          `json:"sellerId"`
}

type fixture struct {
	Sellers  []sellerJSON  `json:"sellers"`
	Buyers   []buyerJSON   `json:"buyers"`
	Products []productJSON `json:"products"`
}

func main() {
	var (
		databaseURL string
		fixtureFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixtureFile, "fixture-file", "db/seed/marketplace.json", "path to fixture JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixtureFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixtureFile string) error {
	slog.Info("reading fixture file", slog.String("path", fixtureFile))

	data, err := os.ReadFile(fixtureFile)
	if err != nil {
		return errors.Wrap(err, "read fixture file")
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return errors.Wrap(err, "parse fixture JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	sellers := repository.NewSellerRepository(pool)
	slog.Info("seeding sellers", slog.Int("count", len(fx.Sellers)))
	for _, s := range fx.Sellers {
		err := sellers.Create(ctx, party.Seller{
			ID:              s.ID,
			Name:            s.Name,
			Surname:         s.Surname,
			Email:           s.Email,
			Title:           s.Title,
			Address:         s.Address,
			City:            s.City,
			Country:         s.Country,
			Phone:           s.Phone,
			Website:         s.Website,
			CompanyType:     s.CompanyType,
			RegisterNumber:  s.RegisterNumber,
			TargetedMarkets: s.TargetedMarkets,
			DeliveryCost:    s.DeliveryCost,
			MinPrice:        s.MinPrice,
		})
		if err != nil {
			return errors.Wrapf(err, "seed seller %s", s.Email)
		}
		slog.Info("seeded seller", slog.String("email", s.Email))
	}

	buyers := repository.NewBuyerRepository(pool)
	slog.Info("seeding buyers", slog.Int("count", len(fx.Buyers)))
	for _, b := range fx.Buyers {
		err := buyers.Create(ctx, party.Buyer{
			ID:      b.ID,
			Name:    b.Name,
			Surname: b.Surname,
			Email:   b.Email,
			Address: b.Address,
			City:    b.City,
			Country: b.Country,
			Phone:   b.Phone,
		})
		if err != nil {
			return errors.Wrapf(err, "seed buyer %s", b.Email)
		}
		slog.Info("seeded buyer", slog.String("email", b.Email))
	}

	products := repository.NewProductRepository(pool)
	slog.Info("seeding products", slog.Int("count", len(fx.Products)))
	for _, p := range fx.Products {
		err := products.Upsert(ctx, catalog.Product{
			ID:        p.ID,
			Title:     p.Title,
			Category:  p.Category,
			Size:      p.Size,
			Packaging: p.Packaging,
			Image:     p.Image,
			Price:     p.Price,
			Stock:     p.Stock,
			SellerID:  p.SellerID,
		})
		if err != nil {
			return errors.Wrapf(err, "seed product %s", p.ID)
		}
		slog.Info("seeded product", slog.String("id", p.ID), slog.String("title", p.Title))
	}

	return nil
}
