package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURLMapsPostgresScheme(t *testing.T) {
	assert.Equal(t,
		"pgx5://u:p@localhost:5432/caseshop?sslmode=disable",
		migrateURL("postgres://u:p@localhost:5432/caseshop?sslmode=disable"))
	assert.Equal(t,
		"pgx5://u:p@localhost:5432/caseshop",
		migrateURL("postgresql://u:p@localhost:5432/caseshop"))
	// already scheme-qualified URLs pass through untouched
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}
