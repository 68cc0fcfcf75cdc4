package dump

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

func TestCommand_MissingPidFileErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	m := meta.New()
	m.Stdout, m.Stderr = &stdout, &stderr
	m.UI = testUI{stdout: &stdout, stderr: &stderr}

	cmd := &Command{Meta: m}
	code := cmd.Run(nil)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "missing -pid-file")
}

func TestReadPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amd.pid")
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0o644))

	pid, err := readPid(path)
	require.NoError(t, err)
	require.Equal(t, 4242, pid)
}

func TestReadPid_MissingFile(t *testing.T) {
	_, err := readPid(filepath.Join(t.TempDir(), "missing.pid"))
	require.Error(t, err)
}
