package intent

import (
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

type fakePM struct {
	pkgs map[string]structs.PackageInfo
}

func (f fakePM) Lookup(name string) (structs.PackageInfo, bool) {
	p, ok := f.pkgs[name]
	return p, ok
}

type fakeTasks struct {
	live map[string]bool
}

func (f fakeTasks) HasLiveTask(pkg string) bool { return f.live[pkg] }

func demoPackage() structs.PackageInfo {
	return structs.PackageInfo{
		PackageName: "com.demo",
		EntryClass:  "Main",
		Activities: []structs.ActivityInfo{
			{ClassName: "Main", IsEntry: true},
			{ClassName: "Detail"},
		},
		Services: []structs.ServiceInfo{{ClassName: "Sync"}},
	}
}

func TestRouter_ResolveTargetWithComponent(t *testing.T) {
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{"com.demo": demoPackage()}}, NewActionTable(), fakeTasks{})
	res, err := r.Resolve(&structs.Intent{Target: "com.demo/Detail"}, structs.ComponentActivity)
	require.NoError(t, err)
	require.Equal(t, "com.demo", res.PackageName)
	require.Equal(t, "Detail", res.ClassName)
	require.False(t, res.SwitchToTask)
}

func TestRouter_ResolveTargetWithoutComponentUsesEntry(t *testing.T) {
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{"com.demo": demoPackage()}}, NewActionTable(), fakeTasks{})
	res, err := r.Resolve(&structs.Intent{Target: "com.demo"}, structs.ComponentActivity)
	require.NoError(t, err)
	require.Equal(t, "Main", res.ClassName)
}

func TestRouter_ResolveTargetSwitchesToLiveTask(t *testing.T) {
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{"com.demo": demoPackage()}}, NewActionTable(), fakeTasks{live: map[string]bool{"com.demo": true}})
	res, err := r.Resolve(&structs.Intent{Target: "com.demo"}, structs.ComponentActivity)
	require.NoError(t, err)
	require.True(t, res.SwitchToTask)
	require.Equal(t, "", res.ClassName)
}

func TestRouter_ResolveActionSingleTarget(t *testing.T) {
	actions := NewActionTable()
	actions.Register("action.SHARE", ActionEntry{PackageName: "com.demo", ClassName: "Detail", Type: structs.ComponentActivity})
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{}}, actions, fakeTasks{})

	res, err := r.Resolve(&structs.Intent{Action: "action.SHARE"}, structs.ComponentActivity)
	require.NoError(t, err)
	require.Equal(t, "com.demo", res.PackageName)
	require.Equal(t, "Detail", res.ClassName)
}

func TestRouter_ResolveAllActionMultiTarget(t *testing.T) {
	actions := NewActionTable()
	actions.Register("broadcast.system.APP_EXIT", ActionEntry{PackageName: "com.a", ClassName: "Recv", Type: structs.ComponentActivity})
	actions.Register("broadcast.system.APP_EXIT", ActionEntry{PackageName: "com.b", ClassName: "Recv", Type: structs.ComponentActivity})
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{}}, actions, fakeTasks{})

	res, err := r.ResolveAll(&structs.Intent{Action: "broadcast.system.APP_EXIT"}, structs.ComponentActivity)
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestRouter_SystemSinkTargets(t *testing.T) {
	r := NewRouter(fakePM{}, NewActionTable(), fakeTasks{})
	res, err := r.Resolve(&structs.Intent{Target: structs.TargetTopResume}, structs.ComponentActivity)
	require.NoError(t, err)
	require.Equal(t, SinkTopResume, res.Sink)
}

func TestRouter_UnknownPackageErrors(t *testing.T) {
	r := NewRouter(fakePM{pkgs: map[string]structs.PackageInfo{}}, NewActionTable(), fakeTasks{})
	_, err := r.Resolve(&structs.Intent{Target: "com.missing"}, structs.ComponentActivity)
	require.Error(t, err)
}
