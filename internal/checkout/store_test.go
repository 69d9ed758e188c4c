package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db/dbtest"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/payment"
)

func seedCustomer(t *testing.T, pg *db.Postgres, username string) uuid.UUID {
	t.Helper()
	userID := uuid.Must(uuid.NewV4())
	customerID := uuid.Must(uuid.NewV4())
	ctx := context.Background()

	_, err := pg.Pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, '', 'x')`, userID, username)
	require.NoError(t, err)
	_, err = pg.Pool.Exec(ctx,
		`INSERT INTO customers (id, user_id, shipping_address, billing_address, payment_info)
		 VALUES ($1, $2, '1 Main St', '1 Main St', '4111111111111111')`, customerID, userID)
	require.NoError(t, err)
	return customerID
}

func seedProduct(t *testing.T, pg *db.Postgres, name, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := pg.Pool.QueryRow(context.Background(),
		`INSERT INTO products (name, price, inventory_quantity) VALUES ($1, $2::numeric, $3) RETURNING id`,
		name, price, stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, pg *db.Postgres, productID int64) int {
	t.Helper()
	var n int
	err := pg.Pool.QueryRow(context.Background(),
		`SELECT inventory_quantity FROM products WHERE id = $1`, productID).Scan(&n)
	require.NoError(t, err)
	return n
}

func countRows(t *testing.T, pg *db.Postgres, table string) int {
	t.Helper()
	var n int
	err := pg.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n)
	require.NoError(t, err)
	return n
}

func newPostgresCheckout(pg *db.Postgres, authorizer payment.Authorizer) checkout.Service {
	return checkout.NewService(
		checkout.NewPostgresStore(pg.Pool),
		customer.NewRepository(pg.Pool),
		authorizer,
		nil,
	)
}

func TestPostgresCheckout_PlacesOrder(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	ctx := context.Background()

	customerID := seedCustomer(t, pg, "alice")
	productID := seedProduct(t, pg, "Mug", "9.99", 10)
	_, err := cart.NewRepository(pg.Pool).Add(ctx, customerID, productID, 3)
	require.NoError(t, err)

	placed, err := newPostgresCheckout(pg, payment.NewRandomAuthorizer(0, nil)).Checkout(ctx, customerID, checkout.Request{})
	require.NoError(t, err)
	assert.Equal(t, "29.97", placed.TotalPrice.StringFixed(2))

	assert.Equal(t, 7, stockOf(t, pg, productID))
	assert.Equal(t, 0, countRows(t, pg, "cart_items"))

	stored, err := order.NewRepository(pg.Pool).GetByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Mug", stored.Items[0].ProductName)
	assert.Equal(t, 3, stored.Items[0].Quantity)
}

func TestPostgresCheckout_InsufficientStockRollsBack(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	ctx := context.Background()
	carts := cart.NewRepository(pg.Pool)

	customerID := seedCustomer(t, pg, "bob")
	mugID := seedProduct(t, pg, "Mug", "9.99", 10)
	knifeID := seedProduct(t, pg, "Knife", "19.00", 1)
	_, err := carts.Add(ctx, customerID, mugID, 2)
	require.NoError(t, err)
	_, err = carts.Add(ctx, customerID, knifeID, 4)
	require.NoError(t, err)

	_, err = newPostgresCheckout(pg, payment.NewRandomAuthorizer(0, nil)).Checkout(ctx, customerID, checkout.Request{})
	require.ErrorIs(t, err, checkout.ErrInsufficientStock)

	assert.Equal(t, 10, stockOf(t, pg, mugID))
	assert.Equal(t, 1, stockOf(t, pg, knifeID))
	assert.Equal(t, 2, countRows(t, pg, "cart_items"))
	assert.Equal(t, 0, countRows(t, pg, "orders"))
}

func TestPostgresCheckout_ConcurrentLastUnit(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	ctx := context.Background()
	carts := cart.NewRepository(pg.Pool)

	productID := seedProduct(t, pg, "Last Mug", "9.99", 1)
	buyers := []uuid.UUID{seedCustomer(t, pg, "carol"), seedCustomer(t, pg, "dave")}
	for _, id := range buyers {
		_, err := carts.Add(ctx, id, productID, 1)
		require.NoError(t, err)
	}

	svc := newPostgresCheckout(pg, payment.NewRandomAuthorizer(0, nil))
	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, id := range buyers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, id, checkout.Request{})
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, checkout.ErrInsufficientStock), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, stockOf(t, pg, productID))
	assert.Equal(t, 1, countRows(t, pg, "orders"))
}

func TestPostgresProcessPayment_DeclinedLeavesStateUnchanged(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	ctx := context.Background()

	customerID := seedCustomer(t, pg, "erin")
	productID := seedProduct(t, pg, "Mug", "9.99", 10)
	_, err := cart.NewRepository(pg.Pool).Add(ctx, customerID, productID, 3)
	require.NoError(t, err)

	_, err = newPostgresCheckout(pg, payment.NewRandomAuthorizer(1, nil)).ProcessPayment(ctx, customerID, checkout.Request{})
	require.ErrorIs(t, err, payment.ErrPaymentDeclined)

	assert.Equal(t, 10, stockOf(t, pg, productID))
	assert.Equal(t, 1, countRows(t, pg, "cart_items"))
	assert.Equal(t, 0, countRows(t, pg, "orders"))
}

func TestPostgresProcessPayment_Approved(t *testing.T) {
	pg := dbtest.Open(t)
	dbtest.Truncate(t, pg)
	ctx := context.Background()

	customerID := seedCustomer(t, pg, "frank")
	productID := seedProduct(t, pg, "Mug", "9.99", 10)
	_, err := cart.NewRepository(pg.Pool).Add(ctx, customerID, productID, 1)
	require.NoError(t, err)

	placed, err := newPostgresCheckout(pg, payment.NewRandomAuthorizer(0, nil)).ProcessPayment(ctx, customerID, checkout.Request{})
	require.NoError(t, err)
	assert.Equal(t, order.StatusApproved, placed.Status)
	assert.Equal(t, 9, stockOf(t, pg, productID))
}
