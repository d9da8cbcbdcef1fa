package connector

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/logging"
	"github.com/tracewear/passport-engine/pkg/models"
)

// PostgresConfig contains PostgreSQL-specific connection options for an
// external source database.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

// buildPostgresURL builds a PostgreSQL URL. All user-provided fields are
// URL-escaped so special characters in passwords (@, /, #, ?) cannot break
// parsing or smuggle extra parameters.
func buildPostgresURL(cfg *PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

type postgresConnector struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresConnector opens a pooled connection to an external PostgreSQL
// product database.
func NewPostgresConnector(ctx context.Context, cfg *PostgresConfig, logger *zap.Logger) (Connector, error) {
	connStr := buildPostgresURL(cfg)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres source: %w", err)
	}
	// pgxpool connects lazily; ping so a bad host fails here, not mid-pull.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres source: %s", logging.SanitizeError(err))
	}

	logger.Info("Opened postgres connector",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)))

	return &postgresConnector{pool: pool, logger: logger.Named("connector-postgres")}, nil
}

var _ Connector = (*postgresConnector)(nil)

func (c *postgresConnector) Name() string {
	return "postgres"
}

func (c *postgresConnector) TestConnection(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %s", logging.SanitizeError(err))
	}
	return nil
}

func (c *postgresConnector) FetchRows(ctx context.Context, query string) (*models.ImportBatch, error) {
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source query failed: %s", logging.SanitizeError(err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Name
	}

	batch := &models.ImportBatch{Headers: headers}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read source row: %w", err)
		}
		row := make(models.ImportRow, len(headers))
		for i, v := range values {
			if v == nil {
				continue
			}
			row[headers[i]] = fmt.Sprint(v)
		}
		batch.Rows = append(batch.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows failed: %s", logging.SanitizeError(err))
	}

	c.logger.Debug("Fetched source rows", zap.Int("rows", len(batch.Rows)))
	return batch, nil
}

func (c *postgresConnector) Close() error {
	c.pool.Close()
	return nil
}
