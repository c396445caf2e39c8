package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "market", Password: "pw", Name: "marketplace", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=market password=pw dbname=marketplace port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestConnectPostgres_RequiresCredentials(t *testing.T) {
	_, err := ConnectPostgres(zap.NewNop(), PostgresConfig{Name: "marketplace"})
	assert.EqualError(t, err, "POSTGRES_USER not set")
}

func TestModels_CoverEveryTable(t *testing.T) {
	assert.Len(t, Models(), 7)
}
