package ratestore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/internal/money"
	"github.com/meridianhealth/estimator/types"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{Conn: mockDB})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, New(gormDB, zap.NewNop())
}

func TestStore_Query_Found(t *testing.T) {
	mockDB, mock, store := setupMockStore(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "provider_id", "network_id", "procedure_code", "place_of_service", "amount_cents", "kind"}).
		AddRow(1, "prov-1", "net-1", "99213", "11", 12345, "AMOUNT")
	mock.ExpectQuery(`SELECT \* FROM "negotiated_rates"`).WillReturnRows(rows)

	rate, err := store.Query(context.Background(), types.RateQuery{
		ProviderID: "prov-1", NetworkID: "net-1", ProcedureCode: "99213", PlaceOfService: "11",
	})
	require.NoError(t, err)
	assert.True(t, rate.Found)
	assert.Equal(t, types.RateKindAmount, rate.Kind)
	assert.Equal(t, money.Cents(12345), rate.Amount)
	assert.True(t, rate.Eligible())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Query_NotFound(t *testing.T) {
	mockDB, mock, store := setupMockStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "negotiated_rates"`).WillReturnRows(sqlmock.NewRows(nil))

	rate, err := store.Query(context.Background(), types.RateQuery{ProviderID: "missing"})
	require.NoError(t, err)
	assert.False(t, rate.Found)
	assert.False(t, rate.Eligible())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Query_DBError(t *testing.T) {
	mockDB, mock, store := setupMockStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "negotiated_rates"`).WillReturnError(sql.ErrConnDone)

	_, err := store.Query(context.Background(), types.RateQuery{ProviderID: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.RateNotFound, apperr.CodeOf(err))
	assert.True(t, apperr.IsRetryable(err))
}
