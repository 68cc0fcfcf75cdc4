// Package config loads the amd agent's on-disk HCL configuration and
// applies environment variable overrides, the way command/agent loads
// the teacher's agent config: a struct decoded straight out of HCL,
// then a narrow override pass for values operators commonly want to
// set per-deployment without editing a file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/hashicorp/hcl"
)

// Config is the amd agent's top-level configuration, decoded from an
// HCL file (spec.md §6 names the run-mode and LMK config files; this
// struct is where their paths, plus the package root and bind path,
// are configured).
type Config struct {
	// LogLevel is an hclog.Level string ("trace", "debug", "info",
	// "warn", "error").
	LogLevel string `hcl:"log_level"`

	// BindPath is the transport listen address/path (am/transport's
	// dispatcher accepts client connections on it).
	BindPath string `hcl:"bind_path"`

	// PackageRoot is the manifest directory scanned at boot to
	// populate am/pkgmanager and the IntentAction table.
	PackageRoot string `hcl:"package_root"`

	// RunModePath is where the NORMAL/DEBUG/SILENCE run mode persists
	// across restarts (am/manager's runmode.go).
	RunModePath string `hcl:"run_mode_path"`

	// LMKConfigPath is the optional LMK threshold-table file
	// (am/priority.ParseConfig); empty selects memory-derived defaults.
	LMKConfigPath string `hcl:"lmk_config_path"`

	// UserSetupComplete feeds Manager.SystemReady's boot-guide-vs-home
	// choice (spec.md §4.8). True on every boot after first-run
	// provisioning; an on-device first-boot image ships this false.
	UserSetupComplete bool `hcl:"user_setup_complete"`

	// LMKPollInterval is how often the LMK re-checks memory pressure,
	// parsed with time.ParseDuration ("30s", "1m"); empty disables
	// periodic polling (memory-pressure-event triggering still works).
	LMKPollInterval string `hcl:"lmk_poll_interval"`

	Telemetry TelemetryConfig `hcl:"telemetry"`
}

// TelemetryConfig controls am/metrics.
type TelemetryConfig struct {
	Enabled     bool   `hcl:"enabled"`
	ServiceName string `hcl:"service_name"`
}

// Default returns the built-in baseline every loaded config is merged
// over, so a minimal or absent config file still produces a workable
// agent.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		BindPath:    "/var/run/amd.sock",
		PackageRoot: "/etc/amd/packages",
		RunModePath:       "/var/lib/amd/runmode",
		UserSetupComplete: true,
		Telemetry:         TelemetryConfig{Enabled: false, ServiceName: "amd"},
	}
}

// LoadFile decodes the HCL file at path into a Config. A missing file
// is not an error: Default() is returned unchanged, mirroring the
// teacher's "config files are optional, sane defaults always work"
// posture.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("am: read config %s: %w", path, err)
	}
	if err := hcl.Decode(cfg, string(data)); err != nil {
		return nil, fmt.Errorf("am: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// envPrefix namespaces every override amd recognizes from the
// environment, so ApplyEnv never clobbers unrelated variables.
const envPrefix = "AMD_"

// ApplyEnv overlays recognized AMD_* environment variables onto cfg,
// parsed with go-envparse the same way the teacher's agent command
// layers CLI flags, env vars, and file config (env vars win over the
// file, the way spec.md §6 documents operator overrides taking
// precedence over defaults). environ is typically os.Environ(); tests
// pass a fixed slice instead.
func ApplyEnv(cfg *Config, environ []string) error {
	vars, err := parseEnviron(environ)
	if err != nil {
		return err
	}
	if v, ok := vars[envPrefix+"LOG_LEVEL"]; ok {
		cfg.LogLevel = v
	}
	if v, ok := vars[envPrefix+"BIND_PATH"]; ok {
		cfg.BindPath = v
	}
	if v, ok := vars[envPrefix+"PACKAGE_ROOT"]; ok {
		cfg.PackageRoot = v
	}
	if v, ok := vars[envPrefix+"RUN_MODE_PATH"]; ok {
		cfg.RunModePath = v
	}
	if v, ok := vars[envPrefix+"LMK_CONFIG_PATH"]; ok {
		cfg.LMKConfigPath = v
	}
	if v, ok := vars[envPrefix+"LMK_POLL_INTERVAL"]; ok {
		cfg.LMKPollInterval = v
	}
	if v, ok := vars[envPrefix+"TELEMETRY_ENABLED"]; ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("am: parse %sTELEMETRY_ENABLED: %w", envPrefix, err)
		}
		cfg.Telemetry.Enabled = enabled
	}
	if v, ok := vars[envPrefix+"TELEMETRY_SERVICE_NAME"]; ok {
		cfg.Telemetry.ServiceName = v
	}
	return nil
}

// parseEnviron hands environ (KEY=VALUE lines, os.Environ()'s format)
// to go-envparse rather than splitting strings by hand, so quoting and
// escaping rules match every other .env-style file amd's deployment
// tooling produces.
func parseEnviron(environ []string) (map[string]string, error) {
	r := strings.NewReader(strings.Join(environ, "\n") + "\n")
	return envparse.Parse(r)
}

// LMKPollDuration parses LMKPollInterval, returning 0 if unset.
func (c *Config) LMKPollDuration() (time.Duration, error) {
	if c.LMKPollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LMKPollInterval)
	if err != nil {
		return 0, fmt.Errorf("am: parse lmk_poll_interval %q: %w", c.LMKPollInterval, err)
	}
	return d, nil
}
