package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// OpenPostgres connects to PostgreSQL and creates the projections table
func OpenPostgres(ctx context.Context, params ConnectionParams) (*SQLStore, error) {
	return OpenPostgresDSN(ctx, params.DSN())
}

// OpenPostgresDSN is OpenPostgres for a ready connection string
func OpenPostgresDSN(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newSQLStore(db, dialect{
		name:            "postgres",
		positional:      true,
		isUniqueViolate: isPostgresUniqueViolation,
	}), nil
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
