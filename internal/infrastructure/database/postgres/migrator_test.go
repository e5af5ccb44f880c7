package postgres

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/BlindDock/internal/config"
)

func TestMigrationURL(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "dock", Password: "pw", DBName: "blinddock"}
	assert.Equal(t, "pgx5://dock:pw@localhost:5432/blinddock?sslmode=disable", MigrationURL(cfg))
}

func TestSourceURL(t *testing.T) {
	abs, err := filepath.Abs(DefaultMigrationPath)
	assert.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(abs), SourceURL(""))
	assert.Equal(t, "file:///srv/migrations", SourceURL("/srv/migrations"))
	assert.Equal(t, "s3://bucket/migrations", SourceURL("s3://bucket/migrations"))
}

func TestNewMigrator_MissingSource(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 1, MigrationPath: t.TempDir() + "/absent"}
	_, err := NewMigrator(cfg, nil)
	assert.Error(t, err)
}

//Personal.AI order the ending
