package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/config"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

func withBuilder(t *testing.T, b Builder) {
	t.Helper()
	oldBuilder, oldInstalled := builder, installed
	SetBuilder(b)
	installed = nil
	t.Cleanup(func() { builder, installed = oldBuilder, oldInstalled })
}

func TestRequireServices_NotConfigured(t *testing.T) {
	withBuilder(t, nil)

	_, err := execute(t, "sync", "status", "conn-1")

	assert.EqualError(t, err, "services not configured")
}

func TestRequireServices_BuildsOnceAndReleases(t *testing.T) {
	env := setupServices(t)
	prebuilt := installed

	var calls, closed int
	var gotCfg config.Config
	withBuilder(t, func(_ context.Context, c config.Config) (*Services, func() error, error) {
		calls++
		gotCfg = c
		return prebuilt, func() error { closed++; return nil }, nil
	})
	env.addConnection(t, "conn-1")

	_, err := execute(t, "sync", "status", "conn-1")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, closed, "closed after the command")
	assert.Equal(t, config.StorageSQLite, gotCfg.Storage.Driver)
	assert.Empty(t, closers)
}

func TestRequireServices_BuildError(t *testing.T) {
	withBuilder(t, func(context.Context, config.Config) (*Services, func() error, error) {
		return nil, nil, errors.New("mongo unreachable")
	})

	_, err := execute(t, "sync", "status", "conn-1")

	assert.EqualError(t, err, "starting services: mongo unreachable")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setupServices(t)
	t.Setenv(config.EnvName("log.verbose"), "true")
	t.Setenv(config.EnvName("sync.max_documents"), "25")
	defer logger.SetVerbose(false)

	_, err := execute(t, "sync", "status", "conn-1")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
	assert.Equal(t, 25, cfg.Sync.MaxDocuments)
}

func TestLoadConfig_Invalid(t *testing.T) {
	setupServices(t)
	t.Setenv(config.EnvName("storage.driver"), "postgres")

	_, err := execute(t, "sync", "status", "conn-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
