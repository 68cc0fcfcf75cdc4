package manager

import (
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

func homePackage() structs.PackageInfo {
	return structs.PackageInfo{
		PackageName: "com.home",
		ExecFile:    "/bin/home",
		EntryClass:  "Launcher",
		Activities: []structs.ActivityInfo{
			{ClassName: "Launcher", IsEntry: true, Actions: []string{structs.ActionHome}},
		},
	}
}

func demoPackage() structs.PackageInfo {
	return structs.PackageInfo{
		PackageName: "com.demo",
		ExecFile:    "/bin/demo",
		EntryClass:  "Main",
		Activities: []structs.ActivityInfo{
			{ClassName: "Main", IsEntry: true},
			{ClassName: "Detail"},
		},
	}
}

// bootHome launches com.home's entry activity the way SystemReady does,
// seeding the Standard manager's home task, and returns the attached
// client so callers can inspect ScheduleX calls or chain further
// requests against the same pid.
func bootHome(t *testing.T, m *Manager) (pid int, client *autoAckClient) {
	t.Helper()
	m.mu.Lock()
	err := m.startActivity("", &structs.Intent{Action: structs.ActionHome}, 0)
	m.mu.Unlock()
	require.NoError(t, err)

	m.mu.Lock()
	for p, name := range spawnerAttachable(m) {
		if name == "com.home" {
			pid = p
		}
	}
	m.mu.Unlock()
	require.NotZero(t, pid)

	client = m.attachPid(pid)
	home := m.standard.HomeTask()
	require.NotNil(t, home)
	require.Equal(t, structs.ActivityResumed, home.Top().Status)
	return pid, client
}

// spawnerAttachable exposes the still-attaching pid->package mapping so
// tests can discover the pid a RequestAttach spawned without depending
// on a fixed fakeSpawner pid sequence.
func spawnerAttachable(m *Manager) map[int]string {
	out := make(map[int]string, len(m.attachingByPid))
	for pid, name := range m.attachingByPid {
		out[pid] = name
	}
	return out
}

func TestManager_BootSeedsHomeTask(t *testing.T) {
	m, _ := newTestManager(homePackage())
	bootHome(t, m)
}

func TestManager_StartActivityFreshLaunch(t *testing.T) {
	m, _ := newTestManager(homePackage(), demoPackage())
	bootHome(t, m)

	m.mu.Lock()
	err := m.startActivity("", &structs.Intent{Target: "com.demo"}, 0)
	m.mu.Unlock()
	require.NoError(t, err)

	var demoPid int
	for pid, name := range spawnerAttachable(m) {
		if name == "com.demo" {
			demoPid = pid
		}
	}
	require.NotZero(t, demoPid)
	m.attachPid(demoPid)

	acts := m.activitiesByUniqueName("com.demo/Main")
	require.Len(t, acts, 1)
	require.Equal(t, structs.ActivityResumed, acts[0].Status)
	require.True(t, acts[0].Foreground)

	// The active task is now com.demo's, not home's.
	require.Equal(t, "com.demo", m.standard.GetActiveTask().TaskTag)
}

func TestManager_StartActivityReusesSingleInstanceEntry(t *testing.T) {
	m, spawner := newTestManager(homePackage(), demoPackage())
	bootHome(t, m)

	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.demo"}, 0))
	m.mu.Unlock()
	var demoPid int
	for pid, name := range spawnerAttachable(m) {
		if name == "com.demo" {
			demoPid = pid
		}
	}
	m.attachPid(demoPid)

	spawnCountBefore := len(spawner.spawned)

	// A second startActivity at the entry (SINGLE_INSTANCE) activity
	// must reuse the existing instance rather than spawning again.
	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.demo/Main"}, 0))
	m.mu.Unlock()

	require.Equal(t, spawnCountBefore, len(spawner.spawned))
	acts := m.activitiesByUniqueName("com.demo/Main")
	require.Len(t, acts, 1)
}

func TestManager_FinishActivityDeliversResultToCaller(t *testing.T) {
	m, _ := newTestManager(homePackage(), demoPackage())
	_, homeClient := bootHome(t, m)

	homeTop := m.standard.HomeTask().Top()
	require.NotNil(t, homeTop)

	m.mu.Lock()
	err := m.startActivity(homeTop.Token, &structs.Intent{Target: "com.demo/Detail"}, 42)
	m.mu.Unlock()
	require.NoError(t, err)

	var demoPid int
	for pid, name := range spawnerAttachable(m) {
		if name == "com.demo" {
			demoPid = pid
		}
	}
	m.attachPid(demoPid)

	acts := m.activitiesByUniqueName("com.demo/Detail")
	require.Len(t, acts, 1)
	detail := acts[0]
	require.Equal(t, structs.ActivityResumed, detail.Status)

	ok := m.FinishActivity(detail.Token, 7, &structs.Intent{Data: "done"})
	require.True(t, ok)

	homeClient.mu.Lock()
	defer homeClient.mu.Unlock()
	require.Len(t, homeClient.results, 1)
	require.Equal(t, int32(42), homeClient.results[0].requestCode)
	require.Equal(t, int32(7), homeClient.results[0].resultCode)
}
