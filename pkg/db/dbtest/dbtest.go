// Package dbtest opens isolated in-memory sqlite databases carrying the
// billing schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/billingsync/pkg/db"
)

// Open returns a fresh database that is not shared with any other test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	// the in-memory database lives as long as one connection stays open, and a
	// single connection keeps shared-cache table locks out of the way
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := dbpkg.NewFromConn(conn).ApplySQLiteSchema(context.Background()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return conn
}

// Client wraps Open in the pooled client type used by services.
func Client(t testing.TB) *dbpkg.Client {
	t.Helper()
	return dbpkg.NewFromConn(Open(t))
}
