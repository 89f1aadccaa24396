package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestLoadDefaults(t *testing.T) {
	setupHome(t)
	Load()

	assert.Equal(t, "cdk.json", Get(KeyCDKConfigPath))
	assert.Equal(t, "latest", Get(KeyDependencyTag))
	assert.False(t, GetBool(KeySkipInstall))
	assert.Empty(t, Get(KeyPackageManager))
}

func TestLoadFromEnvironment(t *testing.T) {
	setupHome(t)
	t.Setenv("STACKGEN_CDK_CONFIG_PATH", "infra/cdk.json")
	t.Setenv("STACKGEN_INSTALL_SKIP", "true")
	Load()

	assert.Equal(t, "infra/cdk.json", Get(KeyCDKConfigPath))
	assert.True(t, GetBool(KeySkipInstall))
}

func TestSetPersists(t *testing.T) {
	home := setupHome(t)
	Load()

	require.NoError(t, Set(KeyDependencyTag, "^2.150.0"))
	require.NoError(t, Set(KeySkipInstall, "yes"))

	path := filepath.Join(home, ".stackgen", "config.yaml")
	assert.Equal(t, path, FilePath())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "^2.150.0")

	viper.Reset()
	Load()
	assert.Equal(t, "^2.150.0", Get(KeyDependencyTag))
	assert.True(t, GetBool(KeySkipInstall))
}

func TestSetRejectsUnknownKey(t *testing.T) {
	setupHome(t)
	Load()

	err := Set("mirror_url", "https://example.com")
	assert.ErrorContains(t, err, "unknown config key")
}

func TestSetRejectsBadBool(t *testing.T) {
	setupHome(t)
	Load()

	assert.Error(t, Set(KeySkipInstall, "maybe"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{
		"cdk.config_path",
		"dependencies.version",
		"install.skip",
		"package_manager",
	}, Keys())
}
