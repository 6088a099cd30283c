package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	deadlock := fmt.Errorf("award: %w", &pgconn.PgError{Code: "40P01"})
	serialization := &pgconn.PgError{Code: "40001"}
	unique := &pgconn.PgError{Code: "23505"}

	assert.True(t, IsTransient(deadlock))
	assert.True(t, IsTransient(serialization))
	assert.False(t, IsTransient(unique))
	assert.False(t, IsTransient(errors.New("40P01")))

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
}

func TestUnitOfWorkReplaysOnlyTransientFailures(t *testing.T) {
	uow := NewUnitOfWork(nil)
	assert.True(t, uow.retrier.RetryIf(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, uow.retrier.RetryIf(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, 3, uow.retrier.MaxAttempts)
}
