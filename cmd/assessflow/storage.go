package main

import (
	"context"
	"fmt"

	"github.com/assessflow/assessflow/engine/storage"
	"github.com/assessflow/assessflow/engine/storage/diskv"
	"github.com/assessflow/assessflow/engine/storage/inmem"
	"github.com/assessflow/assessflow/engine/storage/mysql"
	"github.com/assessflow/assessflow/engine/storage/pgsql"
)

func parseStorage(ctx context.Context, name, dsn string) (storage.Storage, error) {
	switch name {
	case "inmem":
		return inmem.New(), nil
	case "file", "diskv":
		if dsn == "" {
			dsn = "db"
		}
		return diskv.New(dsn), nil
	case "mysql":
		s, err := mysql.New(mysql.WithDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("creating mysql storage: %w", err)
		}
		return s, nil
	case "pgsql":
		s, err := pgsql.New(ctx, pgsql.WithDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("creating pgsql storage: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage: %s", name)
}
