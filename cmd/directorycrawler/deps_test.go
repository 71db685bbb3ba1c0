package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/config"
	csvsink "github.com/JakeFAU/directory-crawler/internal/storage/csv"
	"github.com/JakeFAU/directory-crawler/internal/storage/memory"
	"github.com/JakeFAU/directory-crawler/internal/storage/xlsx"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestBuildDependenciesLocalOnly(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Images.Dir = t.TempDir()

	deps, err := buildDependencies(context.Background(), cfg, "run-1", fixedClock{}, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close(zap.NewNop())

	assert.IsType(t, &xlsx.Sink{}, deps.sink)
	assert.IsType(t, &memory.Ledger{}, deps.ledger)
	assert.Empty(t, deps.observers)
	assert.NotNil(t, deps.images)
	assert.NotNil(t, deps.sites)
}

func TestBuildDependenciesCSVFormat(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Images.Dir = t.TempDir()
	cfg.Checkpoint.Format = config.FormatCSV
	cfg.Fetch.PerHostRPS = 2

	deps, err := buildDependencies(context.Background(), cfg, "run-2", fixedClock{}, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close(zap.NewNop())

	assert.IsType(t, &csvsink.Sink{}, deps.sink)
}

func TestBuildDependenciesBadPostgresDSN(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Images.Dir = t.TempDir()
	cfg.Postgres.DSN = "://not a dsn"

	_, err = buildDependencies(context.Background(), cfg, "run-3", fixedClock{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres sink")
}
