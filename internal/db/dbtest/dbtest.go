// Package dbtest opens the integration-test database. Tests that need it are
// skipped unless DB_HOST_TEST is set.
package dbtest

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
)

var (
	once    sync.Once
	shared  *db.Postgres
	openErr error
)

func configFromEnv() config.PostgresConfig {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return config.PostgresConfig{
		Host:            os.Getenv("DB_HOST_TEST"),
		Port:            get("DB_PORT_TEST", "5432"),
		User:            get("DB_USER_TEST", "postgres"),
		Password:        get("DB_PASSWORD_TEST", "123456"),
		DBName:          get("DB_NAME_TEST", "storefront_test"),
		SSLMode:         get("DB_SSLMODE_TEST", "disable"),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
}

// Open returns a migrated database shared by every test in the process.
func Open(tb testing.TB) *db.Postgres {
	tb.Helper()
	if os.Getenv("DB_HOST_TEST") == "" {
		tb.Skip("DB_HOST_TEST not set, skipping integration test")
	}

	once.Do(func() {
		cfg := configFromEnv()
		if openErr = db.ApplyMigrations(cfg); openErr != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shared, openErr = db.New(ctx, cfg)
	})
	require.NoError(tb, openErr, "failed to open test database")

	return shared
}

// Truncate empties every storefront table before and after the calling test.
func Truncate(tb testing.TB, pg *db.Postgres) {
	tb.Helper()
	truncate := func() {
		_, err := pg.Pool.Exec(context.Background(),
			"TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
		require.NoError(tb, err, "failed to truncate tables")
	}
	truncate()
	tb.Cleanup(truncate)
}

var tables = []string{
	"reviews", "order_items", "orders", "cart_items", "products", "customers", "users", "revoked_tokens",
}
