package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFile_DecodesHCL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amd.hcl")
	contents := `
log_level = "debug"
bind_path = "/tmp/amd.sock"
package_root = "/opt/amd/packages"
run_mode_path = "/tmp/runmode"
lmk_config_path = "/tmp/lmk.conf"
lmk_poll_interval = "15s"

telemetry {
  enabled = true
  service_name = "amd-dev"
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/tmp/amd.sock", cfg.BindPath)
	require.Equal(t, "/opt/amd/packages", cfg.PackageRoot)
	require.Equal(t, "/tmp/runmode", cfg.RunModePath)
	require.Equal(t, "/tmp/lmk.conf", cfg.LMKConfigPath)
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "amd-dev", cfg.Telemetry.ServiceName)

	d, err := cfg.LMKPollDuration()
	require.NoError(t, err)
	require.Equal(t, 15e9, float64(d))
}

func TestApplyEnv_OverridesRecognizedVars(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, []string{
		"AMD_LOG_LEVEL=trace",
		"AMD_BIND_PATH=/tmp/other.sock",
		"AMD_TELEMETRY_ENABLED=true",
		"UNRELATED=ignored",
	})
	require.NoError(t, err)
	require.Equal(t, "trace", cfg.LogLevel)
	require.Equal(t, "/tmp/other.sock", cfg.BindPath)
	require.True(t, cfg.Telemetry.Enabled)
}

func TestApplyEnv_RejectsUnparsableBool(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, []string{"AMD_TELEMETRY_ENABLED=maybe"})
	require.Error(t, err)
}
