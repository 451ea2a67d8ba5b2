// Package migrations applies the embedded schema on startup.
package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/boardforge/boardforge/common/db"
)

//go:embed 0001_init.sql
var initSchema string

// Apply runs the schema against the database. The schema is idempotent,
// so this is safe to call on every startup.
func Apply(ctx context.Context, database *db.DB) error {
	if _, err := database.Exec(ctx, initSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
