package psql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "lrt", Password: "secret", DBName: "audit", SslMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=lrt password=secret dbname=audit sslmode=disable", cfg.DSN())
}
