package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/xdooria-rates/app/rates/internal/dao"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/app"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedConfig(t *testing.T) {
	cfg := defaultConfig()
	logPath := filepath.Join(t.TempDir(), "rates.log")

	mgr, err := app.LoadConfigFile("config.yaml", logPath, logPath, &cfg)
	require.NoError(t, err)
	require.NotNil(t, mgr)

	assert.Equal(t, *model.DefaultSettings(), cfg.Rates)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.AutoMigrate)
	require.NotNil(t, cfg.Database.Standalone)
	assert.Equal(t, "xdooria_rates", cfg.Database.Standalone.DBName)
	assert.False(t, cfg.Redis.Enabled)
	require.NotNil(t, cfg.Redis.Standalone)
	assert.Equal(t, 6379, cfg.Redis.Standalone.Port)
	assert.Equal(t, "rates", cfg.Metrics.Namespace)
	assert.Equal(t, logPath, cfg.Log.OutputPath)
}

func TestProvideFeatureDAODisabled(t *testing.T) {
	m, err := metrics.New(nil)
	require.NoError(t, err)
	defer m.Stop()

	cfg := defaultConfig()
	client, cleanup, err := provideRedisClient(&cfg, logger.NewNoop())
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, client)

	feature := provideFeatureDAO(client, logger.NewNoop(), m)
	assert.IsType(t, &dao.NoopFeatureDAO{}, feature)
}
