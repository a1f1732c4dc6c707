// Package diskv implements an engine storage backend using the diskv key-value store.
package diskv

import (
	"path/filepath"

	"github.com/assessflow/assessflow/engine/storage/kv"
	"github.com/assessflow/assessflow/utils/kv/kvdiskv"
	"github.com/assessflow/assessflow/utils/uuid"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv is a a diskv-backed engine storage backend.
type Diskv struct {
	*kv.KV
}

func New(path string) *Diskv {
	flatTransform := func(s string) []string { return []string{} }
	return &Diskv{KV: kv.New(
		kvdiskv.NewBucket(diskv.New(diskv.Options{
			BasePath:     filepath.Join(path, "engine", "workflow"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		})),
		kvdiskv.NewBucket(diskv.New(diskv.Options{
			BasePath:     filepath.Join(path, "engine", "submission"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		})),
		uuid.NewUUID(),
	)}
}
