package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ananth-NQI/tablepe-backend/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser: "postgres", DBPass: "secret", DBName: "tablepe",
		DBHost: "localhost", DBPort: 5432,
	}
	assert.Equal(t,
		"host=localhost user=postgres password=secret dbname=tablepe port=5432 sslmode=disable",
		DSN(cfg))

	cfg.InstanceConnectionName = "proj:region:db"
	assert.Equal(t,
		"host=/cloudsql/proj:region:db user=postgres password=secret dbname=tablepe sslmode=disable",
		DSN(cfg))
}
