// Command catalog-ingest imports a supplier catalog feed into the database.
// The feed is a set of gzip-compressed NDJSON parts (catalog-part1.gz,
// catalog-part2.gz, ...) that overlap: resumed exports repeat products, so
// the ingest deduplicates by product id across parts.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sipmarket/sipmarket/internal/domain/catalog"
	"github.com/sipmarket/sipmarket/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

func main() {
	var (
		dataDir     string
		numParts    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog-partN.gz files")
	flag.IntVar(&numParts, "parts", 3, "number of feed parts")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, numParts, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numParts int, databaseURL string) error {
	parts := make([]string, numParts)
	for i := range numParts {
		parts[i] = filepath.Join(dataDir, fmt.Sprintf("catalog-part%d.gz", i+1))
	}
	for _, p := range parts {
		if _, err := os.Stat(p); err != nil {
			return errors.Wrapf(err, "check part %s", p)
		}
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)

	// Decoders run one goroutine per part; a single writer owns the dedupe
	// filter and the upserts.
	decoded := make(chan catalog.Product, 1024)

	g, ctx := errgroup.WithContext(ctx)
	dg, dctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		dg.Go(decodePart(dctx, i, p, decoded))
	}
	g.Go(func() error {
		defer close(decoded)
		return dg.Wait()
	})
	g.Go(writeProducts(ctx, products, decoded))

	return g.Wait()
}

func decodePart(ctx context.Context, idx int, path string, out chan<- catalog.Product) func() error {
	return func() error {
		var count uint64
		if err := streamGzFile(ctx, path, func(line []byte) error {
			p, err := decodeProduct(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", count+1)
			}
			count++
			if count%progressEvery == 0 {
				slog.Info("decode progress",
					slog.Int("part", idx+1),
					slog.Uint64("products", count),
				)
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "decode part %d", idx+1)
		}

		slog.Info("decode complete", slog.Int("part", idx+1), slog.Uint64("products", count))
		return nil
	}
}

// decodeProduct parses one NDJSON feed line. Unknown keys are skipped so the
// supplier can extend the feed without breaking the ingest.
func decodeProduct(line []byte) (catalog.Product, error) {
	var p catalog.Product
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "size":
			p.Size, err = d.Str()
		case "packaging":
			p.Packaging, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(n.String())
			}
		case "stock":
			p.Stock, err = d.Int()
		case "sellerId":
			p.SellerID, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return catalog.Product{}, err
	}
	if p.ID == "" {
		return catalog.Product{}, errors.New("feed line missing product id")
	}
	return p, nil
}

// writeProducts upserts every first occurrence of a product id. The filter
// has no false negatives, so all cross-part duplicates are skipped; a rare
// false positive drops a product until the next full feed.
func writeProducts(ctx context.Context, products *repository.ProductRepository, in <-chan catalog.Product) func() error {
	return func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var written, skipped uint64

		for p := range in {
			if seen.TestAndAddString(p.ID) {
				skipped++
				continue
			}
			if err := products.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("write progress",
					slog.Uint64("written", written),
					slog.Uint64("skipped", skipped),
				)
			}
		}

		slog.Info("write complete", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
