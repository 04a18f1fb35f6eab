// Command code-ingest bulk-imports discount codes for a tenant from gzip'd
// newline-delimited code lists, e.g. exports from a partner campaign tool.
//
// Codes appearing in at least -min-files of the input files are considered
// valid. Cross-file membership is tested with per-file bloom filters so the
// first pass never holds a full code set in memory; bloom-positive
// candidates are verified exactly in a second pass before insertion.
// All imported codes share one rule template given by the -type/-value
// flags and are inserted idempotently (existing codes are left untouched).
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
	"github.com/atelier-commerce/discount-engine/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 32
	insertChunk   = 1_000
)

const insertCodeSQL = `INSERT INTO discount_codes
	(id, tenant_id, code, description, discount_type, value, is_active, usage_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, 0, now(), now())
	ON CONFLICT (tenant_id, code) DO NOTHING`

func main() {
	var (
		databaseURL  string
		tenantID     string
		minFiles     int
		discountType string
		value        string
		description  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&tenantID, "tenant", "", "tenant the codes belong to")
	flag.IntVar(&minFiles, "min-files", 2, "number of input files a code must appear in")
	flag.StringVar(&discountType, "type", "percentage", "discount type for imported codes")
	flag.StringVar(&value, "value", "10", "discount value for imported codes")
	flag.StringVar(&description, "description", "Imported promo code", "description for imported codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" || tenantID == "" || flag.NArg() == 0 {
		slog.Error("usage: code-ingest -tenant <id> [-database-url <url>] file1.gz [file2.gz ...]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rule := discount.CreateInput{
		Type:        discount.Type(discountType),
		Value:       decimal.RequireFromString(value),
		Description: description,
	}

	if err := run(ctx, databaseURL, tenantID, flag.Args(), minFiles, rule); err != nil {
		slog.Error("code ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("code ingest completed")
}

func run(ctx context.Context, databaseURL, tenantID string, files []string, minFiles int, rule discount.CreateInput) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}
	if minFiles > len(files) {
		minFiles = len(files)
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters := make([]*bloom.BloomFilter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			add := func(code string) { filter.AddString(code) }
			if err := streamGzFile(gctx, f, add); err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Pass 2: exact counts for bloom-positive candidates only.
	slog.Info("pass 2: counting candidates", slog.Int("min_files", minFiles))
	counts := make(map[string]int)
	for i, f := range files {
		seen := make(map[string]bool)
		err := streamGzFile(ctx, f, func(code string) {
			if seen[code] {
				return
			}
			seen[code] = true
			hits := 0
			for _, filter := range filters {
				if filter.TestString(code) {
					hits++
				}
			}
			if hits >= minFiles {
				counts[code]++
			}
		})
		if err != nil {
			return errors.Wrapf(err, "scan %s (pass 2, file %d)", f, i+1)
		}
	}

	valid := make([]string, 0, len(counts))
	for code, n := range counts {
		if n >= minFiles {
			valid = append(valid, code)
		}
	}
	slog.Info("valid codes found", slog.Int("count", len(valid)))
	if len(valid) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	start := time.Now()
	for from := 0; from < len(valid); from += insertChunk {
		to := min(from+insertChunk, len(valid))
		batch := &pgx.Batch{}
		for _, code := range valid[from:to] {
			batch.Queue(insertCodeSQL,
				uuid.New().String(), tenantID, code,
				rule.Description, string(rule.Type), rule.Value,
			)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "insert batch at %d", from)
		}
	}
	slog.Info("codes inserted",
		slog.Int("count", len(valid)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// streamGzFile reads a gzip'd file line by line, normalizing each line and
// passing length-valid codes to fn.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "open gzip stream")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	var n int
	for scanner.Scan() {
		if n++; n%100_000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		code := discount.NormalizeCode(scanner.Text())
		if len(code) >= minCodeLen && len(code) <= maxCodeLen {
			fn(code)
		}
	}
	return scanner.Err()
}
