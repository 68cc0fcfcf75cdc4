package pkgmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

const demoManifest = `
package_name = "com.demo"
exec_file    = "/bin/demo"
entry_class  = "Main"
support_multi = true

activity "Main" {
  is_entry = true
  launch_mode = "SINGLE_TASK"
  actions = ["android.intent.action.MAIN"]
}

service "Worker" {
  priority = 2
  actions  = ["com.demo.START_WORKER"]
}
`

func TestDirFetcher_FetchPackageInfoDecodesManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "com.demo.hcl"), []byte(demoManifest), 0o644))

	f := NewDirFetcher(dir)
	info, err := f.FetchPackageInfo("com.demo")
	require.NoError(t, err)
	require.Equal(t, "com.demo", info.PackageName)
	require.Equal(t, "/bin/demo", info.ExecFile)
	require.True(t, info.SupportMulti)
	require.Len(t, info.Activities, 1)
	require.Equal(t, structs.LaunchSingleTask, info.Activities[0].LaunchMode)
	require.Equal(t, []string{"android.intent.action.MAIN"}, info.Activities[0].Actions)
	require.Len(t, info.Services, 1)
	require.Equal(t, 2, info.Services[0].Priority)
}

func TestDirFetcher_ListPackagesScansDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "com.demo.hcl"), []byte(demoManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a manifest"), 0o644))

	f := NewDirFetcher(dir)
	pkgs, err := f.ListPackages()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.Equal(t, "com.demo", pkgs[0].PackageName)
}

func TestDirFetcher_FetchPackageInfoMissingFileErrors(t *testing.T) {
	f := NewDirFetcher(t.TempDir())
	_, err := f.FetchPackageInfo("com.missing")
	require.Error(t, err)
}
