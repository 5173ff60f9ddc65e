package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database backed by sqlmock through the postgres dialector
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	require.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.EqualError(t, db.Ping(context.Background()), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	_, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	configurePool(mockDB, &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: 30})

	assert.Equal(t, 7, mockDB.Stats().MaxOpenConnections)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, shared.ErrAlreadyExists},
		{"pq foreign key violation", &pq.Error{Code: "23503"}, shared.ErrReferenceViolation},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, shared.ErrConcurrencyConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), shared.ErrConcurrencyConflict},
		{"lock not available", &pq.Error{Code: "55P03"}, shared.ErrResourceLocked},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, shared.ErrReferenceViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("passes through unknown errors", func(t *testing.T) {
		plain := errors.New("connection reset")
		assert.Same(t, plain, translateError(plain))
		undefinedTable := &pgconn.PgError{Code: "42P01"}
		assert.Same(t, undefinedTable, translateError(undefinedTable))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})
}

func TestDepositRepository_DeleteTranslatesDriverErrors(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormDepositRepository(db.DB)

	mock.ExpectExec(`DELETE FROM "deposits"`).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "could not obtain lock"})

	err := repo.Delete(t.Context(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrResourceLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
