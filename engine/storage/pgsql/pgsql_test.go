package pgsql

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/engine/storage/test"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgSQLStorage(t *testing.T) {
	testDSN := os.Getenv("ASSESSFLOW_PGSQL_STORAGE_TEST_DSN")
	if testDSN == "" {
		t.Skip("ASSESSFLOW_PGSQL_STORAGE_TEST_DSN not set")
	}

	s, err := New(context.Background(), WithDSN(testDSN))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	test.TestEngineStorage(t, func() storage.Storage { return s })
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("inserting: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected 23503 to not be a unique violation")
	}
	if isUniqueViolation(errors.New("other")) {
		t.Error("expected plain error to not be a unique violation")
	}
}
