package connector

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/logging"
	"github.com/tracewear/passport-engine/pkg/models"
)

// MSSQLConfig contains SQL Server-specific connection options for an external
// source database.
type MSSQLConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	Database               string
	Encrypt                bool
	TrustServerCertificate bool
}

// buildMSSQLURL builds a sqlserver:// URL with escaped credentials.
func buildMSSQLURL(cfg *MSSQLConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		query.Encode(),
	)
}

type mssqlConnector struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMSSQLConnector opens a connection to an external SQL Server product
// database using SQL authentication.
func NewMSSQLConnector(ctx context.Context, cfg *MSSQLConfig, logger *zap.Logger) (Connector, error) {
	connStr := buildMSSQLURL(cfg)

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver source: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Opened sqlserver connector",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)))

	return &mssqlConnector{db: db, logger: logger.Named("connector-mssql")}, nil
}

var _ Connector = (*mssqlConnector)(nil)

func (c *mssqlConnector) Name() string {
	return "mssql"
}

func (c *mssqlConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %s", logging.SanitizeError(err))
	}
	return nil
}

func (c *mssqlConnector) FetchRows(ctx context.Context, query string) (*models.ImportBatch, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source query failed: %s", logging.SanitizeError(err))
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read source columns: %w", err)
	}

	batch := &models.ImportBatch{Headers: headers}
	raw := make([]sql.RawBytes, len(headers))
	scan := make([]any, len(headers))
	for i := range raw {
		scan[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to read source row: %w", err)
		}
		row := make(models.ImportRow, len(headers))
		for i, cell := range raw {
			if cell == nil {
				continue
			}
			row[headers[i]] = string(cell)
		}
		batch.Rows = append(batch.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows failed: %s", logging.SanitizeError(err))
	}

	c.logger.Debug("Fetched source rows", zap.Int("rows", len(batch.Rows)))
	return batch, nil
}

func (c *mssqlConnector) Close() error {
	return c.db.Close()
}
