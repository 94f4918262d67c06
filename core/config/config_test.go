package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Source.Driver)
	assert.Equal(t, 3306, cfg.Source.Port)
	assert.Equal(t, "postgres", cfg.Target.Driver)
	assert.Equal(t, 5432, cfg.Target.Port)

	assert.False(t, cfg.Run.DryRun)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Equal(t, 5, cfg.Run.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Run.RetryInitialInterval)
	assert.True(t, cfg.Run.RecordRuns)

	assert.Equal(t, "default", cfg.Pricing.Profile)
	assert.Equal(t, 500, cfg.Pricing.PageSize)
	assert.Equal(t, 3, cfg.Repair.MaxPasses)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SOURCE_DSN", "shop:pw@tcp(legacy:3306)/store")
	t.Setenv("TARGET_DSN", "postgres://medusa@db/commerce")
	t.Setenv("RUN_DRY_RUN", "true")
	t.Setenv("RUN_WORKERS", "4")
	t.Setenv("PRICING_CURRENCY", "inr")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "shop:pw@tcp(legacy:3306)/store", cfg.Source.DSN)
	assert.Equal(t, "postgres://medusa@db/commerce", cfg.Target.DSN)
	assert.True(t, cfg.Run.DryRun)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, "inr", cfg.Pricing.Currency)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "TARGET_DRIVER=sqlite\nTARGET_NAME=/tmp/reconciler.db\nREPAIR_DEFAULT_SHIPPING_PROFILE_ID=sp_default\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TARGET_DRIVER")
		os.Unsetenv("TARGET_NAME")
		os.Unsetenv("REPAIR_DEFAULT_SHIPPING_PROFILE_ID")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Target.Driver)
	assert.Equal(t, "/tmp/reconciler.db", cfg.Target.Name)
	assert.Equal(t, "sp_default", cfg.Repair.DefaultShippingProfileID)
}
