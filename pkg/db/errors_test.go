package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), ""))
	assert.True(t, IsUniqueViolation(errors.New("ERROR: duplicate key value violates unique constraint"), ""))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: customers.stripe_customer_id"), ""))
	assert.True(t, IsUniqueViolation(errors.New("violates customers_pkey"), "customers_pkey"))
	assert.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
}

func TestIsUniqueViolationAgainstSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	client := NewFromConn(conn)
	require.NoError(t, client.ApplySQLiteSchema(context.Background()))

	insert := "INSERT INTO customers (user_id, stripe_customer_id) VALUES (?, ?)"
	require.NoError(t, client.DB().WithContext(context.Background()).Exec(insert, uuid.NewString(), "cus_1").Error)
	err = client.DB().WithContext(context.Background()).Exec(insert, uuid.NewString(), "cus_1").Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, ""))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("other")))
}
