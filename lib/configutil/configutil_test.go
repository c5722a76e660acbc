package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Limit    int    `json:"limit"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments and trailing commas are allowed
		base_url: "https://qhare.fr",
		email: 'ops@example.com',
		limit: 5,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		password: "hunter2",
		limit: 3,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:  "https://qhare.fr",
		Email:    "ops@example.com",
		Password: "hunter2",
		Limit:    3,
	}, cfg)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOverrideFromEnv(t *testing.T) {
	value := "from-file"
	t.Setenv("QHARE_TEST_OVERRIDE", "")
	OverrideFromEnv(&value, "QHARE_TEST_OVERRIDE")
	require.Equal(t, "from-file", value)

	t.Setenv("QHARE_TEST_OVERRIDE", "from-env")
	OverrideFromEnv(&value, "QHARE_TEST_OVERRIDE")
	require.Equal(t, "from-env", value)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{ email: "local@example.com" }`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Email: "local@example.com"}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{ email: `), 0600))
	_, err := ReadConfig[testConfig](name)
	require.ErrorContains(t, err, "parse "+name)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "dir/config.local.json5", LocalPath("dir/config.json5"))
	require.Equal(t, "config.local", LocalPath("config"))
}
