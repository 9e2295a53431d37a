package address

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addressColumns = []string{
	"id", "user_id", "recipient_name", "phone",
	"line1", "line2",
	"city", "region", "postal_code", "country",
	"created_at",
}

func TestRepository_GetByUserID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(addressColumns).
			AddRow(uuid.New().String(), userID.String(), "Giulia Rossi", nil,
				"Via Roma 1", nil, "Alba", "CN", "12051", "IT", time.Now())

		mock.ExpectQuery(`SELECT .* FROM shipping_addresses WHERE user_id = \$1 ORDER BY created_at DESC`).
			WithArgs(userID).
			WillReturnRows(rows)

		res, err := repo.GetByUserID(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Alba", res[0].City)
		assert.Nil(t, res[0].Phone)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM shipping_addresses`).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByUserID(context.Background(), userID)
		assert.Error(t, err)
	})
}

func TestRepository_GetByID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM shipping_addresses WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(addressColumns).
				AddRow(id.String(), uuid.New().String(), "Marco", "+39 333", "Via Po 2", "int. 4",
					"Torino", "TO", "10100", "IT", time.Now()))

		a, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, a.ID)
		require.NotNil(t, a.Phone)
		assert.Equal(t, "+39 333", *a.Phone)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM shipping_addresses WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(addressColumns))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrAddressNotFound)
	})
}

func TestRepository_Create(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewRepository(sqlDB)
	addr := &ShippingAddress{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		RecipientName: "Anna",
		Line1:         "Rue de Rivoli 5",
		City:          "Paris",
		PostalCode:    "75001",
		Country:       "FR",
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO shipping_addresses`).
		WithArgs(addr.ID, addr.UserID, addr.RecipientName, addr.Phone,
			addr.Line1, addr.Line2, addr.City, addr.Region, addr.PostalCode, addr.Country).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Create(context.Background(), addr))
	assert.Equal(t, created, addr.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
