package storage

import (
	"context"
	"fmt"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Options struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
}

// Open returns the backend named by opts.Driver. Postgres expects its
// schema to already be in place (see the migrations package).
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverLibSQL:
		return OpenSQL(ctx, opts.DatabaseURL)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
