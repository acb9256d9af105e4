package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYaml = `
database:
  host: db.local
  port: 5433
  name: shop
  username: exporter
  password: secret
security:
  apiKey: 0123456789abcdef0123
export:
  directory: /var/exports
  delimiter: ","
  pageSize: 200
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYaml))
	require.NoError(t, err)

	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "/var/exports", cfg.Export.Directory)
	assert.Equal(t, 200, cfg.Export.PageSize)
	assert.Equal(t, ',', cfg.Export.DelimiterRune())
	assert.Equal(t, '"', cfg.Export.EnclosureRune())
	assert.Equal(t, 25, cfg.Export.TimeBudgetSec)
	assert.Equal(t, 24, cfg.Export.DownloadTTLHours)
	assert.True(t, cfg.Export.Utf8Bom)
	assert.Equal(t, "ps_", cfg.Export.TablePrefix)
	assert.Equal(t, 7, cfg.Cleanup.TTLDays)
	assert.NotEmpty(t, cfg.TechnicalParameters.InstanceId)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("EXPORTER_EXPORT_PAGESIZE", "50")
	t.Setenv("EXPORTER_DATABASE_PASSWORD", "from-env")

	cfg, err := LoadConfig(writeConfig(t, validYaml))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Export.PageSize)
	assert.Equal(t, "from-env", cfg.Database.Password)
}

func TestLoadConfig_Validation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, validYaml+"  enclosure: \",\"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
database:
  host: db.local
  name: shop
  username: exporter
  password: secret
security:
  apiKey: short
`))
	assert.Error(t, err)
}

func TestLoadConfig_AnonymizationNeedsSalt(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, validYaml+"  anonymize: true\n"))
	assert.Error(t, err)

	cfg, err := LoadConfig(writeConfig(t, validYaml+"  anonymize: true\n  anonymizeSalt: install-secret\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Export.Anonymize)
	assert.Equal(t, "install-secret", cfg.Export.AnonymizeSalt)
}
