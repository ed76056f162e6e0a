package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpCapturesChainAndCode(t *testing.T) {
	err := fmt.Errorf("handle event: %w", Wrap(CodeStoreWrite, fmt.Errorf("boom"), "upsert price"))
	dump := Dump(err)

	assert.Equal(t, err.Error(), dump.TopMessage)
	assert.Equal(t, CodeStoreWrite, dump.Code)
	assert.Len(t, dump.Chain, 3)
	assert.Nil(t, dump.PG)

	fields := dump.Fields()
	assert.Equal(t, CodeStoreWrite, fields["error_code"])
	assert.NotContains(t, fields, "pg_code")
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_customers_stripe_customer_id", TableName: "customers"}
	dump := Dump(Wrap(CodeConflict, pgxErr, "insert customer"))
	require.NotNil(t, dump.PG)
	assert.Equal(t, "23505", dump.PG.Code)
	assert.Equal(t, "customers", dump.Fields()["pg_table"])
	assert.NotContains(t, dump.Fields(), "pg_column")

	pqErr := &pq.Error{Code: "23503", Table: "subscriptions", Message: "fk violation"}
	dump = Dump(fmt.Errorf("wrap: %w", pqErr))
	require.NotNil(t, dump.PG)
	assert.Equal(t, "23503", dump.PG.Code)
	assert.Equal(t, "fk violation", dump.PG.Message)
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
