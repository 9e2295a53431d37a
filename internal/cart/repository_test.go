package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"vinmarket-be/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listColumns = []string{
	"id", "seller_id", "seller_name", "total_amount", "created_at", "updated_at",
	"item_id", "wine_id", "title", "quantity", "unit_price",
}

func TestRepository_ListByBuyer(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	buyerID := uuid.New()
	cartA, cartB := uuid.New(), uuid.New()
	sellerA, sellerB := uuid.New(), uuid.New()
	now := time.Now()

	t.Run("Groups lines per cart", func(t *testing.T) {
		rows := sqlmock.NewRows(listColumns).
			AddRow(cartA.String(), sellerA.String(), "Cantina Rossi", "40.00", now, now,
				uuid.New().String(), uuid.New().String(), "Barolo", 2, "20.00").
			AddRow(cartA.String(), sellerA.String(), "Cantina Rossi", "40.00", now, now,
				uuid.New().String(), uuid.New().String(), "Barbaresco", 1, "0.00").
			AddRow(cartB.String(), sellerB.String(), "UNKNOWN", "100.00", now, now,
				uuid.New().String(), uuid.New().String(), "Brunello", 1, "100.00")

		mock.ExpectQuery(`SELECT .* FROM carts c JOIN cart_items ci ON ci.cart_id = c.id .* WHERE c.buyer_id = \$1`).
			WithArgs(buyerID).
			WillReturnRows(rows)

		carts, err := repo.ListByBuyer(context.Background(), buyerID)
		require.NoError(t, err)
		require.Len(t, carts, 2)

		assert.Equal(t, cartA, carts[0].ID)
		assert.Equal(t, buyerID, carts[0].BuyerID)
		assert.Len(t, carts[0].Items, 2)
		assert.Equal(t, cartA, carts[0].Items[1].CartID)
		assert.Equal(t, "UNKNOWN", carts[1].SellerName)
		assert.True(t, decimal.NewFromInt(100).Equal(carts[1].Items[0].UnitPrice))
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM carts c`).
			WithArgs(buyerID).
			WillReturnRows(sqlmock.NewRows(listColumns))

		carts, err := repo.ListByBuyer(context.Background(), buyerID)
		require.NoError(t, err)
		assert.Empty(t, carts)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM carts c`).
			WillReturnError(errors.New("db down"))

		_, err := repo.ListByBuyer(context.Background(), buyerID)
		assert.EqualError(t, err, "db down")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LockBuyerCarts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	buyerID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM carts WHERE buyer_id = \$1 ORDER BY id FOR UPDATE`).
		WithArgs(buyerID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	repo := NewRepository(sqlDB)
	err = db.NewTransactor(sqlDB).WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.LockBuyerCarts(ctx, buyerID)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindCart(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	buyerID, sellerID := uuid.New(), uuid.New()
	cols := []string{"id", "buyer_id", "seller_id", "total_amount", "created_at", "updated_at"}

	t.Run("Found", func(t *testing.T) {
		cartID := uuid.New()
		mock.ExpectQuery(`SELECT .* FROM carts WHERE buyer_id = \$1 AND seller_id = \$2`).
			WithArgs(buyerID, sellerID).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(
				cartID.String(), buyerID.String(), sellerID.String(), "12.50", time.Now(), time.Now(),
			))

		c, err := repo.FindCart(context.Background(), buyerID, sellerID)
		require.NoError(t, err)
		assert.Equal(t, cartID, c.ID)
		assert.Equal(t, "12.5", c.TotalAmount.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM carts`).
			WithArgs(buyerID, sellerID).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.FindCart(context.Background(), buyerID, sellerID)
		assert.ErrorIs(t, err, ErrCartNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_EnsureCart(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	buyerID, sellerID := uuid.New(), uuid.New()
	existing := uuid.New()

	mock.ExpectQuery(`INSERT INTO carts .* ON CONFLICT \(buyer_id, seller_id\) DO UPDATE SET updated_at = NOW\(\) RETURNING`).
		WithArgs(sqlmock.AnyArg(), buyerID, sellerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_amount", "created_at", "updated_at"}).
			AddRow(existing.String(), "40.00", time.Now(), time.Now()))

	c, err := repo.EnsureCart(context.Background(), buyerID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, existing, c.ID, "an existing cart id wins over the generated one")
	assert.Equal(t, sellerID, c.SellerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Items(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	ctx := context.Background()
	cartID, wineID, itemID := uuid.New(), uuid.New(), uuid.New()

	t.Run("FindItem", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM cart_items WHERE cart_id = \$1 AND wine_id = \$2`).
			WithArgs(cartID, wineID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "wine_id", "quantity", "unit_price"}).
				AddRow(itemID.String(), cartID.String(), wineID.String(), 2, "20.00"))

		it, err := repo.FindItem(ctx, cartID, wineID)
		require.NoError(t, err)
		assert.Equal(t, 2, it.Quantity)
	})

	t.Run("FindItem missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM cart_items`).
			WithArgs(cartID, wineID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindItem(ctx, cartID, wineID)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})

	t.Run("InsertItem", func(t *testing.T) {
		price := decimal.NewFromInt(20)
		mock.ExpectExec(`INSERT INTO cart_items`).
			WithArgs(sqlmock.AnyArg(), cartID, wineID, 3, price).
			WillReturnResult(sqlmock.NewResult(0, 1))

		item := &Item{CartID: cartID, WineID: wineID, Quantity: 3, UnitPrice: price}
		require.NoError(t, repo.InsertItem(ctx, item))
		assert.NotEqual(t, uuid.Nil, item.ID)
	})

	t.Run("UpdateItemQuantity", func(t *testing.T) {
		mock.ExpectExec(`UPDATE cart_items SET quantity = \$1`).
			WithArgs(4, itemID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateItemQuantity(ctx, itemID, 4))
	})

	t.Run("UpdateItemQuantity no row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE cart_items`).
			WithArgs(4, itemID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateItemQuantity(ctx, itemID, 4), ErrCartItemNotFound)
	})

	t.Run("DeleteItem", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM cart_items WHERE id = \$1`).
			WithArgs(itemID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteItem(ctx, itemID))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecalculateTotal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	cartID := uuid.New()

	mock.ExpectQuery(`UPDATE carts SET total_amount = COALESCE\(`).
		WithArgs(cartID).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount", "count"}).AddRow("60.00", 2))

	total, lines, err := repo.RecalculateTotal(context.Background(), cartID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(total))
	assert.Equal(t, 2, lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteByBuyer(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	buyerID := uuid.New()
	mock.ExpectExec(`DELETE FROM carts WHERE buyer_id = \$1`).
		WithArgs(buyerID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewRepository(sqlDB).DeleteByBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
