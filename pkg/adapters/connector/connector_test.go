package connector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPostgresURLEscapesCredentials(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db.example.com",
		User:     "import@reader",
		Password: "p@ss/w#rd?&x",
		Database: "commerce",
	}

	connStr := buildPostgresURL(cfg)
	assert.True(t, strings.HasPrefix(connStr, "postgresql://"))
	assert.NotContains(t, connStr, "p@ss/w#rd", "raw password must not survive escaping")
	assert.Contains(t, connStr, "db.example.com:5432")
	assert.Contains(t, connStr, "sslmode=require", "SSL defaults on for external sources")
}

func TestBuildPostgresURLSSLModeOverride(t *testing.T) {
	cfg := &PostgresConfig{Host: "localhost", User: "u", Database: "d", SSLMode: "disable"}
	assert.Contains(t, buildPostgresURL(cfg), "sslmode=disable")
}

func TestBuildMSSQLURL(t *testing.T) {
	cfg := &MSSQLConfig{
		Host:     "sql.example.com",
		Port:     14330,
		User:     "reader",
		Password: "s3cret:@",
		Database: "products",
		Encrypt:  true,
	}

	connStr := buildMSSQLURL(cfg)
	assert.True(t, strings.HasPrefix(connStr, "sqlserver://reader:"))
	assert.NotContains(t, connStr, "s3cret:@", "raw password must not survive escaping")
	assert.Contains(t, connStr, "sql.example.com:14330")
	assert.Contains(t, connStr, "database=products")
	assert.Contains(t, connStr, "encrypt=true")
}

func TestBuildMSSQLURLDefaults(t *testing.T) {
	cfg := &MSSQLConfig{Host: "localhost", User: "u", Database: "d"}
	connStr := buildMSSQLURL(cfg)
	assert.Contains(t, connStr, "localhost:1433")
	assert.Contains(t, connStr, "encrypt=false")
}
