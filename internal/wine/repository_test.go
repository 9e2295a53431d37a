package wine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wineColumns = []string{
	"id", "seller_id", "seller_name", "title",
	"price", "quantity", "status", "sold_at",
	"created_at", "updated_at",
}

func TestRepository_GetByID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	wineID := uuid.New()
	sellerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(wineColumns).AddRow(
			wineID.String(), sellerID.String(), "Domaine Leroy", "Musigny 2015",
			"450.00", 3, "ACTIVE", nil,
			time.Now(), time.Now(),
		)
		mock.ExpectQuery(`SELECT .* FROM wines w LEFT JOIN users u ON u.id = w.seller_id WHERE w.id = \$1`).
			WithArgs(wineID).
			WillReturnRows(rows)

		w, err := repo.GetByID(context.Background(), wineID)
		require.NoError(t, err)
		assert.Equal(t, "Musigny 2015", w.Title)
		assert.True(t, decimal.RequireFromString("450").Equal(w.Price))
		assert.Equal(t, StatusActive, w.Status)
		assert.Equal(t, 3, w.Quantity)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM wines`).
			WithArgs(wineID).
			WillReturnRows(sqlmock.NewRows(wineColumns))

		_, err := repo.GetByID(context.Background(), wineID)
		assert.ErrorIs(t, err, ErrWineNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM wines`).
			WillReturnError(errors.New("db down"))

		_, err := repo.GetByID(context.Background(), wineID)
		assert.EqualError(t, err, "db down")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetForUpdate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	wineID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM wines w .* FOR UPDATE OF w`).
		WithArgs(wineID).
		WillReturnRows(sqlmock.NewRows(wineColumns).AddRow(
			wineID.String(), uuid.New().String(), "Seller", "Barolo",
			"40.00", 1, "ACTIVE", nil, time.Now(), time.Now(),
		))

	w, err := NewRepository(sqlDB).GetForUpdate(context.Background(), wineID)
	require.NoError(t, err)
	assert.Equal(t, wineID, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DecrementQuantity(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	wineID := uuid.New()
	query := `UPDATE wines SET quantity = quantity - \$2, status = CASE WHEN quantity - \$2 = 0 THEN 'SOLD' ELSE status END, .* WHERE id = \$1 AND quantity >= \$2 RETURNING quantity`

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(wineID, 2).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(0))

		remaining, err := repo.DecrementQuantity(context.Background(), wineID, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)
	})

	t.Run("Conflict", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(wineID, 5).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}))

		_, err := repo.DecrementQuantity(context.Background(), wineID, 5)
		assert.ErrorIs(t, err, ErrQuantityConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
