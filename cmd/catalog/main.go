package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

func main() {
	service := "catalog"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := getenv("PORT", "8082")

	store, closeStore, err := openStore(ctx, os.Getenv("DATABASE_URL"), log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log}, kit.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(ctx, ":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openStore uses Postgres when a DSN is given, inserting any demo product
// whose id is still free, and the in-memory demo catalog otherwise.
func openStore(ctx context.Context, dsn string, log *zap.Logger) (catalog.Store, func(), error) {
	if dsn == "" {
		log.Info("using in-memory catalog")
		return catalog.NewStore(), func() {}, nil
	}

	db, err := catalog.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	store := catalog.NewPostgresStore(db)

	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := store.Seed(ctx, catalog.DemoProducts()...); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("using postgres catalog")
	return store, func() { _ = db.Close() }, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
