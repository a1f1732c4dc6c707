package mysql

import (
	"fmt"
	"os"
	"testing"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/engine/storage/test"

	"github.com/go-sql-driver/mysql"
)

func TestMySQLStorage(t *testing.T) {
	testDSN := os.Getenv("ASSESSFLOW_MYSQL_STORAGE_TEST_DSN")
	if testDSN == "" {
		t.Skip("ASSESSFLOW_MYSQL_STORAGE_TEST_DSN not set")
	}

	s, err := New(WithDSN(testDSN))
	if err != nil {
		t.Fatal(err)
	}

	// the suite randomizes its submission IDs so an existing database
	// with the schema loaded can be reused between runs.
	test.TestEngineStorage(t, func() storage.Storage { return s })
}

func TestIsDupEntry(t *testing.T) {
	dup := fmt.Errorf("inserting: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !isDupEntry(dup) {
		t.Error("expected wrapped 1062 to be a duplicate entry")
	}
	if isDupEntry(&mysql.MySQLError{Number: 1146}) {
		t.Error("expected 1146 to not be a duplicate entry")
	}
	if isDupEntry(os.ErrNotExist) {
		t.Error("expected non-MySQL error to not be a duplicate entry")
	}
}
