package agent

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/open-vela/amd/command/meta"
	"github.com/stretchr/testify/require"
)

type testUI struct {
	stdout, stderr *bytes.Buffer
}

func (u testUI) Output(s string) { u.stdout.WriteString(s + "\n") }
func (u testUI) Error(s string)  { u.stderr.WriteString(s + "\n") }

func testCommand() (*Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	m := meta.New()
	m.Stdout, m.Stderr = &stdout, &stderr
	m.UI = testUI{stdout: &stdout, stderr: &stderr}
	return &Command{Meta: m}, &stdout, &stderr
}

const homeManifest = `
package_name = "com.home"
exec_file    = "/bin/home"
entry_class  = "Launcher"

activity "Launcher" {
  is_entry = true
  actions  = ["action.system.HOME"]
}
`

func TestCommand_StartBuildsAndBootsManager(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "amd.pid")
	packageRoot := filepath.Join(dir, "packages")
	require.NoError(t, os.Mkdir(packageRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(packageRoot, "com.home.hcl"), []byte(homeManifest), 0o644))
	configPath := filepath.Join(dir, "amd.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte(`package_root = "`+packageRoot+`"`+"\n"), 0o644))

	cmd, _, _ := testCommand()
	m, logger, cfg, gotPidFile, code := cmd.start([]string{"-config", configPath, "-pid-file", pidFile})
	require.Equal(t, 0, code)
	require.NotNil(t, m)
	require.NotNil(t, logger)
	require.NotNil(t, cfg)
	require.Equal(t, pidFile, gotPidFile)
	defer m.Close()

	b, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	require.NotEmpty(t, b)

	var buf bytes.Buffer
	m.Dump(&buf)
	require.Contains(t, buf.String(), "com.home/Launcher")
}

func TestCommand_StartFailsOnUnparsableFlags(t *testing.T) {
	cmd, _, _ := testCommand()
	_, _, _, _, code := cmd.start([]string{"-unknown-flag"})
	require.Equal(t, 1, code)
}

func TestCommand_StartFailsOnBadConfigPath(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "amd.hcl")
	require.NoError(t, os.WriteFile(badPath, []byte("not = valid = hcl = ="), 0o644))

	cmd, _, stderr := testCommand()
	_, _, _, _, code := cmd.start([]string{"-config", badPath})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "error loading config")
}
