package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snow-mirror/internal/config"
)

const testConfigYAML = `id: mirror-test
interval: 7
log_level: debug
postgres:
  address: localhost
  port: 5432
  username: postgres
  password: postgres
  db_name: snow_mirror
servicenow:
  instance: https://example.service-now.com
  username: mirror
  password: mirror-secret
`

func writeConfigFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestInitConfigReadsFileFromSearchPath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml")
	chdir(t, dir)

	cfgFile = ""
	initConfig()

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "mirror-test", cfg.ID)
	assert.Equal(t, 7, cfg.Interval)
	assert.Equal(t, "https://example.service-now.com", cfg.ServiceNow.Instance)
}

func TestInitConfigHonorsExplicitConfigFlag(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, t.TempDir(), "custom.yaml")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	initConfig()

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "mirror-test", cfg.ID)
	assert.Equal(t, "snow_mirror", cfg.Postgres.DBName)
}

func TestInitConfigWithoutAnyFileLeavesViperUsable(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	chdir(t, t.TempDir())

	cfgFile = ""
	initConfig()

	viper.Set("id", "from-env")
	assert.Equal(t, "from-env", viper.GetString("id"))
}
