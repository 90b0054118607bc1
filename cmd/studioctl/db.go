package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"studio/internal/infra"
)

// openRunner connects to the database named by --db-url or DATABASE_URL.
// The caller closes the returned pool.
func openRunner(ctx context.Context) (*infra.SQLRunner, func(), error) {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		url = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if url == "" {
		return nil, nil, errors.New("DATABASE_URL is required (or pass --db-url)")
	}

	pool, err := infra.OpenPool(ctx, url, infra.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewLogger(os.Getenv("APP_ENV"), "studioctl")
	return infra.NewSQLRunner(pool, logger), pool.Close, nil
}
