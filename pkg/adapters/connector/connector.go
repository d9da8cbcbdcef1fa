// Package connector pulls product rows from external commerce databases so
// brands can run unmapped-value detection without exporting files first.
package connector

import (
	"context"

	"github.com/tracewear/passport-engine/pkg/models"
)

// Connector is a read-only link to an external product database. Each
// implementation owns its connection and must be closed when done.
type Connector interface {
	// Name identifies the connector kind ("postgres", "mssql").
	Name() string

	// TestConnection verifies the database is reachable with valid
	// credentials.
	TestConnection(ctx context.Context) error

	// FetchRows runs a read-only query and returns the result as an import
	// batch: column names as headers, every cell rendered as a string.
	FetchRows(ctx context.Context, query string) (*models.ImportBatch, error)

	// Close releases the database connection.
	Close() error
}
