package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/GoSim-25-26J-441/ea-backend/config"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	t.Run("built from parts", func(t *testing.T) {
		cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "ea", Password: "pw", Name: "inventory"}
		assert.Equal(t, "host=db port=5433 user=ea password=pw dbname=inventory sslmode=disable", DSN(cfg))
	})

	t.Run("explicit dsn wins", func(t *testing.T) {
		cfg := &config.DatabaseConfig{Host: "db", DSN: "postgres://u@h/x"}
		assert.Equal(t, "postgres://u@h/x", DSN(cfg))
	})
}

func TestConstraintErrors(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
}
