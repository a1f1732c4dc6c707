package diskv

import (
	"testing"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/engine/storage/test"
)

func TestDiskvStorage(t *testing.T) {
	dir := t.TempDir()
	test.TestEngineStorage(t, func() storage.Storage { return New(dir) })
}
