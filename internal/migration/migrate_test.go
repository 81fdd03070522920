package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		b, err := fs.ReadFile(embeddedMigrations, "migrations/"+e.Name())
		require.NoError(t, err)
		body := string(b)
		assert.True(t, strings.Contains(body, "-- +goose Up"), "%s has no Up section", e.Name())
		assert.True(t, strings.Contains(body, "-- +goose Down"), "%s has no Down section", e.Name())
	}
}
