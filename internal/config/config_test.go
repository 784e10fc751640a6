package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("API_PORT", "9090")
	t.Setenv("EXPORT_ENGINE", "ChromeDP")
	t.Setenv("EXPORT_LOAD_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "chromedp", cfg.Export.Engine)
	assert.Equal(t, 45*time.Second, cfg.Export.LoadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Export.ImageTimeout)
	assert.Equal(t, time.Second, cfg.Export.SettleDelay)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadRequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio access key id")
}

func TestValidateExport(t *testing.T) {
	cfg := DefaultExportConfig()
	require.NoError(t, ValidateExport(cfg))

	cfg.Engine = "phantomjs"
	require.Error(t, ValidateExport(cfg))

	cfg = DefaultExportConfig()
	cfg.ImageTimeout = 0
	require.Error(t, ValidateExport(cfg))

	cfg = DefaultExportConfig()
	cfg.SettleDelay = 0
	require.NoError(t, ValidateExport(cfg))
}
