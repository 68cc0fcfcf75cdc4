package manager

import (
	"bytes"
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

// bootGuidePackage declares a BOOT_GUIDE activity and a service that
// listens for BOOT_READY, exercising deliverActionBroadcast's
// manifest-registered resolution for both component types.
func bootGuidePackage() structs.PackageInfo {
	return structs.PackageInfo{
		PackageName: "com.setup",
		ExecFile:    "/bin/setup",
		EntryClass:  "Guide",
		// Both the BOOT_READY service and the BOOT_GUIDE activity
		// attach to the same not-yet-running process during
		// SystemReady, so this must queue rather than reject.
		SupportMulti: true,
		Activities: []structs.ActivityInfo{
			{ClassName: "Guide", IsEntry: true, Actions: []string{structs.ActionBootGuide}},
		},
		Services: []structs.ServiceInfo{
			{ClassName: "Prep", Actions: []string{structs.ActionBootReady}},
		},
	}
}

func TestManager_SystemReadyStartsBootGuideWhenUnprovisioned(t *testing.T) {
	m, _ := newTestManager(homePackage(), bootGuidePackage())

	err := m.SystemReady(false)
	require.NoError(t, err)

	// The BOOT_READY service is launched and attached, settling its
	// pending-spawn queue synchronously.
	setupPid := pidFor(m, "com.setup")
	require.NotZero(t, setupPid)
	m.attachPid(setupPid)

	// BOOT_GUIDE wins over HOME since userSetupComplete is false and a
	// boot-guide activity is registered.
	require.Equal(t, "com.setup", m.standard.GetActiveTask().TaskTag)
}

func TestManager_SystemReadyStartsHomeWhenProvisioned(t *testing.T) {
	m, _ := newTestManager(homePackage(), bootGuidePackage())

	err := m.SystemReady(true)
	require.NoError(t, err)

	homePid := pidFor(m, "com.home")
	require.NotZero(t, homePid)
	m.attachPid(homePid)

	require.Equal(t, "com.home", m.standard.GetActiveTask().TaskTag)
}

func TestManager_SystemReadySkippedInSilenceMode(t *testing.T) {
	m, _ := newTestManager(homePackage())
	require.NoError(t, m.SetRunMode(RunModeSilence))

	require.NoError(t, m.SystemReady(true))

	// Nothing was launched: SILENCE mode skips the whole boot sequence.
	require.Nil(t, m.standard.GetActiveTask())
}

func TestManager_DumpDoesNotPanicAndReportsState(t *testing.T) {
	m, _ := newTestManager(homePackage(), demoPackage())
	bootHome(t, m)

	var buf bytes.Buffer
	m.Dump(&buf)
	out := buf.String()
	require.Contains(t, out, "Tasks:")
	require.Contains(t, out, "com.home/Launcher")
	require.Contains(t, out, "Priority list:")
	require.Contains(t, out, "Intent actions:")
}
