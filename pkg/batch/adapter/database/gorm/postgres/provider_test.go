package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/config"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/postgres"
)

func TestConnectionString(t *testing.T) {
	dsn := postgres.ConnectionString(dbconfig.DatabaseConfig{
		Host: "db", Port: 6543, User: "etl", Password: "pw", Database: "taxi", Sslmode: "require",
	})
	assert.Equal(t, "host=db port=6543 user=etl password=pw dbname=taxi sslmode=require", dsn)
}

func TestConnectionString_Defaults(t *testing.T) {
	dsn := postgres.ConnectionString(dbconfig.DatabaseConfig{Host: "db", User: "etl", Database: "taxi", Schema: "analytics"})
	assert.Equal(t, "host=db port=5432 user=etl password= dbname=taxi sslmode=disable search_path=analytics", dsn)
}
