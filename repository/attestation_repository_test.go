package repository_test

import (
	"context"
	"regexp"
	"testing"

	"payment-challenge-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func TestRecord_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttestationRepo(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "challenge_attestations"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Record(context.Background(), "acct-1", "sess-1", true, "challenge")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_DatabaseError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttestationRepo(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "challenge_attestations"`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Record(context.Background(), "acct-1", "sess-1", false, "fallback")
	assert.Error(t, err)
}
