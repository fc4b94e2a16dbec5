package database

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures a backend
type Options struct {
	Driver     string // sqlite or postgres
	SQLitePath string
	Postgres   ConnectionParams
}

// Open connects to the configured backend
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, opts.Postgres)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}
