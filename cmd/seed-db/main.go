package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/repository"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, stock, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price,
			stock = EXCLUDED.stock, image = EXCLUDED.image`

	upsertCredentialSQL = `INSERT INTO credentials (id, key_hash, user_id, email, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, user_id = EXCLUDED.user_id,
			email = EXCLUDED.email, scopes = EXCLUDED.scopes, active = TRUE`
)

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Image string          `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		userToken    string
		adminToken   string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&userToken, "user-token", "", "customer bearer token to seed (or CHECKOUT_SEED_USER_TOKEN env)")
	flag.StringVar(&adminToken, "admin-token", "", "admin bearer token to seed (or CHECKOUT_SEED_ADMIN_TOKEN env)")
	flag.StringVar(&pepper, "auth-pepper", "", "HMAC pepper for credential hashing (or CHECKOUT_AUTH_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userToken == "" {
		userToken = os.Getenv("CHECKOUT_SEED_USER_TOKEN")
	}
	if adminToken == "" {
		adminToken = os.Getenv("CHECKOUT_SEED_ADMIN_TOKEN")
	}
	if pepper == "" {
		pepper = os.Getenv("CHECKOUT_AUTH_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, userToken, adminToken, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, userToken, adminToken, pepper string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCredentials(ctx, pool, userToken, adminToken, pepper); err != nil {
		return errors.Wrap(err, "seed credentials")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range products {
		g.Go(func() error {
			if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Stock, p.Image); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

func seedCredentials(ctx context.Context, pool *pgxpool.Pool, userToken, adminToken, pepper string) error {
	type cred struct {
		id     string
		token  string
		userID string
		email  string
		scopes []string
	}

	creds := make([]cred, 0, 2)
	if userToken != "" {
		creds = append(creds, cred{
			id:     "seed-customer",
			token:  userToken,
			userID: "user-seed-1",
			email:  "customer@example.com",
			scopes: []string{"orders:write"},
		})
	}
	if adminToken != "" {
		creds = append(creds, cred{
			id:     "seed-admin",
			token:  adminToken,
			userID: "admin-seed-1",
			email:  "admin@example.com",
			scopes: []string{"orders:write", auth.ScopeAdmin},
		})
	}

	for _, c := range creds {
		hash := auth.HashToken([]byte(pepper), c.token)
		if _, err := pool.Exec(ctx, upsertCredentialSQL, c.id, hash, c.userID, c.email, c.scopes); err != nil {
			return errors.Wrapf(err, "upsert credential %s", c.id)
		}
		slog.Info("upserted credential", slog.String("id", c.id), slog.String("user", c.userID))
	}

	return nil
}
