package sqlite

import (
	"context"
	"database/sql"
)

// RunMigrate runs migration on a database (exported for testing)
func RunMigrate(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db)
}

// NewFromDB creates a journal from an existing db connection (exported for testing)
// This allows testing the error path in newFromDB when prepareStatements fails
func NewFromDB(db *sql.DB) (*Journal, error) {
	return newFromDB(db, defaultConfig())
}
