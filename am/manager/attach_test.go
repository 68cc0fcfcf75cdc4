package manager

import (
	"errors"
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

func multiPackage() structs.PackageInfo {
	return structs.PackageInfo{
		PackageName:  "com.multi",
		ExecFile:     "/bin/multi",
		EntryClass:   "Main",
		SupportMulti: true,
		Activities: []structs.ActivityInfo{
			{ClassName: "Main", IsEntry: true},
			{ClassName: "Detail"},
		},
	}
}

func pidFor(m *Manager, packageName string) int {
	for pid, name := range spawnerAttachable(m) {
		if name == packageName {
			return pid
		}
	}
	return 0
}

// Two StartActivity requests for a still-attaching isSupportMultiTask
// package both queue behind the single spawned process and both run
// once attachApplication resolves it.
func TestManager_RequestAttachQueuesForSupportMulti(t *testing.T) {
	m, spawner := newTestManager(homePackage(), multiPackage())
	bootHome(t, m)

	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.multi"}, 0))
	m.mu.Unlock()
	require.Len(t, spawner.spawned, 1)

	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.multi/Detail"}, 0))
	m.mu.Unlock()
	// The second request queues behind the still-attaching pid; no
	// second process is spawned.
	require.Len(t, spawner.spawned, 1)

	pid := pidFor(m, "com.multi")
	require.NotZero(t, pid)
	m.attachPid(pid)

	require.Len(t, m.activitiesByUniqueName("com.multi/Main"), 1)
	require.Len(t, m.activitiesByUniqueName("com.multi/Detail"), 1)
}

// A second StartActivity request for a still-attaching package that
// does not declare isSupportMultiTask is rejected outright.
func TestManager_RequestAttachRejectsSecondWithoutSupportMulti(t *testing.T) {
	m, spawner := newTestManager(homePackage(), demoPackage())
	bootHome(t, m)

	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.demo"}, 0))
	m.mu.Unlock()
	require.Len(t, spawner.spawned, 1)

	m.mu.Lock()
	err := m.startActivity("", &structs.Intent{Target: "com.demo/Detail"}, 0)
	m.mu.Unlock()
	require.Error(t, err)
	require.True(t, errors.Is(err, structs.ErrInvalidOperation))
	require.Len(t, spawner.spawned, 1)
}

// HandleAppExit tears down every activity/service the dead pid owned,
// broadcasts BROADCAST_APP_EXIT, and falls back to the existing home
// task once the dead app's task is gone.
func TestManager_HandleAppExitCascadesAndFallsBackToHome(t *testing.T) {
	m, _ := newTestManager(homePackage(), demoPackage())
	_, homeClient := bootHome(t, m)

	homeTop := m.standard.HomeTask().Top()
	require.Equal(t, structs.StatusOK, m.RegisterReceiver(structs.BroadcastAppExit, homeTop.Token, homeTop.Pid))

	m.mu.Lock()
	require.NoError(t, m.startActivity("", &structs.Intent{Target: "com.demo"}, 0))
	m.mu.Unlock()
	demoPid := pidFor(m, "com.demo")
	require.NotZero(t, demoPid)
	m.attachPid(demoPid)

	require.Equal(t, "com.demo", m.standard.GetActiveTask().TaskTag)
	require.Len(t, m.activitiesByUniqueName("com.demo/Main"), 1)

	m.HandleAppExit(demoPid)

	require.Empty(t, m.activitiesByUniqueName("com.demo/Main"))
	_, ok := m.appByPid(demoPid)
	require.False(t, ok)

	// The active task reverts to home: com.demo's task is removed and
	// the home task, still present, becomes active again, so no
	// relaunch is needed.
	require.Equal(t, "com.home", m.standard.GetActiveTask().TaskTag)

	homeClient.mu.Lock()
	defer homeClient.mu.Unlock()
	require.Len(t, homeClient.received, 1)
	require.Equal(t, structs.BroadcastAppExit, homeClient.received[0].intent.Action)
	require.Equal(t, "com.demo", homeClient.received[0].intent.Data)
}
