package cart_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db/dbtest"
)

func insertCustomer(t *testing.T, pg *db.Postgres, username string) uuid.UUID {
	t.Helper()
	userID := uuid.Must(uuid.NewV4())
	customerID := uuid.Must(uuid.NewV4())
	ctx := context.Background()

	_, err := pg.Pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, '', 'x')`, userID, username)
	require.NoError(t, err)
	_, err = pg.Pool.Exec(ctx, `INSERT INTO customers (id, user_id) VALUES ($1, $2)`, customerID, userID)
	require.NoError(t, err)
	return customerID
}

func insertProduct(t *testing.T, pg *db.Postgres, name, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := pg.Pool.QueryRow(context.Background(),
		`INSERT INTO products (name, price, inventory_quantity) VALUES ($1, $2::numeric, $3) RETURNING id`,
		name, price, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestCartRepository_AddAccumulates(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	repo := cart.NewRepository(pg.Pool)
	ctx := context.Background()

	customerID := insertCustomer(t, pg, "alice")
	productID := insertProduct(t, pg, "Mug", "9.99", 10)

	first, err := repo.Add(ctx, customerID, productID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, "Mug", first.Product.Name)

	second, err := repo.Add(ctx, customerID, productID, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	items, err := repo.ListByCustomer(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "9.99", items[0].Product.Price.StringFixed(2))
}

func TestCartRepository_AddUnknownProduct(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	repo := cart.NewRepository(pg.Pool)

	customerID := insertCustomer(t, pg, "bob")

	_, err := repo.Add(context.Background(), customerID, 999999, 1)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCartRepository_ListByCustomer_Isolated(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	repo := cart.NewRepository(pg.Pool)
	ctx := context.Background()

	alice := insertCustomer(t, pg, "alice")
	bob := insertCustomer(t, pg, "bob")
	productID := insertProduct(t, pg, "Mug", "9.99", 10)

	_, err := repo.Add(ctx, alice, productID, 1)
	require.NoError(t, err)

	items, err := repo.ListByCustomer(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, items)
}
