package lifecycle

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
	"github.com/stretchr/testify/require"
)

type fakeActivityClient struct {
	calls []string
}

func (f *fakeActivityClient) ScheduleLaunchActivity(structs.EndpointToken, *structs.ActivityRecord) error {
	f.calls = append(f.calls, "launch")
	return nil
}
func (f *fakeActivityClient) ScheduleStartActivity(structs.EndpointToken, structs.Token) error {
	f.calls = append(f.calls, "start")
	return nil
}
func (f *fakeActivityClient) ScheduleResumeActivity(structs.EndpointToken, structs.Token, *structs.Intent) error {
	f.calls = append(f.calls, "resume")
	return nil
}
func (f *fakeActivityClient) SchedulePauseActivity(structs.EndpointToken, structs.Token) error {
	f.calls = append(f.calls, "pause")
	return nil
}
func (f *fakeActivityClient) ScheduleStopActivity(structs.EndpointToken, structs.Token) error {
	f.calls = append(f.calls, "stop")
	return nil
}
func (f *fakeActivityClient) ScheduleDestroyActivity(structs.EndpointToken, structs.Token) error {
	f.calls = append(f.calls, "destroy")
	return nil
}

type fakeEndpoints struct{}

func (fakeEndpoints) EndpointForPid(pid int) (structs.EndpointToken, bool) {
	return structs.EndpointToken("ep"), true
}

// wireFor maps an ActivityStatus (which is always a *-ING transient
// right after Transition issues a call) to the stable wire status the
// fake client "reports back" once it processes the call.
func wireFor(s structs.ActivityStatus) structs.WireStatus {
	switch s {
	case structs.ActivityCreating:
		return structs.WireCreated
	case structs.ActivityStarting:
		return structs.WireStarted
	case structs.ActivityResuming:
		return structs.WireResumed
	case structs.ActivityPausing:
		return structs.WirePaused
	case structs.ActivityStopping:
		return structs.WireStopped
	case structs.ActivityDestroying:
		return structs.WireDestroyed
	}
	panic("not a transient status")
}

func TestActivityDriver_DrivesFullyToTargetAcrossReports(t *testing.T) {
	board := taskboard.New(hclog.NewNullLogger(), false)
	client := &fakeActivityClient{}
	driver := NewActivityDriver(board, client, fakeEndpoints{}, hclog.NewNullLogger())

	var settled *structs.ActivityRecord
	driver.OnSettled = func(act *structs.ActivityRecord) { settled = act }

	act := &structs.ActivityRecord{Token: "tok-1", Status: structs.ActivityCreating, Pid: 100}

	driver.Transition(act, structs.ActivityResumed, nil)
	require.Equal(t, []string{"start"}, client.calls)
	require.Equal(t, structs.ActivityStarting, act.Status)

	// Report the stable state back; driver should re-enter and issue resume.
	driver.ReportStatus(act.Token, wireFor(act.Status))
	require.Equal(t, []string{"start", "resume"}, client.calls)
	require.Equal(t, structs.ActivityResuming, act.Status)

	driver.ReportStatus(act.Token, wireFor(act.Status))
	require.Equal(t, structs.ActivityResumed, act.Status)
	require.Equal(t, act, settled)
}

func TestActivityDriver_AbnormalExitBypassesClientAndReleasesWaiters(t *testing.T) {
	board := taskboard.New(hclog.NewNullLogger(), false)
	client := &fakeActivityClient{}
	driver := NewActivityDriver(board, client, fakeEndpoints{}, hclog.NewNullLogger())

	act := &structs.ActivityRecord{Token: "tok-2", Status: structs.ActivityCreating, Pid: 100}
	driver.Transition(act, structs.ActivityResumed, nil)
	require.Equal(t, 1, board.Len())

	driver.AbnormalExit(act)
	require.Equal(t, structs.ActivityDestroyed, act.Status)
	require.Equal(t, 0, board.Len(), "the pending status-report waiter must be released")
	require.Equal(t, []string{"start"}, client.calls, "no destroy call reaches a dead client")
}

type fakeServiceClient struct {
	calls []string
}

func (f *fakeServiceClient) ScheduleStartService(structs.EndpointToken, *structs.ServiceRecord, *structs.Intent) error {
	f.calls = append(f.calls, "start")
	return nil
}
func (f *fakeServiceClient) ScheduleStopService(structs.EndpointToken, structs.Token) error {
	f.calls = append(f.calls, "stop")
	return nil
}
func (f *fakeServiceClient) ScheduleBindService(structs.EndpointToken, *structs.ServiceRecord, structs.Connection, *structs.Intent) error {
	f.calls = append(f.calls, "bind")
	return nil
}
func (f *fakeServiceClient) ScheduleUnbindService(structs.EndpointToken, structs.Connection) error {
	f.calls = append(f.calls, "unbind")
	return nil
}

func TestServiceDriver_BindThenUnbindDestroysWhenNotStarted(t *testing.T) {
	board := taskboard.New(hclog.NewNullLogger(), false)
	client := &fakeServiceClient{}
	var destroyed *structs.ServiceRecord
	driver := NewServiceDriver(board, client, fakeEndpoints{}, hclog.NewNullLogger())
	driver.OnDestroy = func(s *structs.ServiceRecord) { destroyed = s }

	svc := &structs.ServiceRecord{Token: "svc-1", Status: structs.ServiceCreating, Pid: 100}
	conn := structs.Connection{Token: "conn-1"}

	driver.Bind(svc, conn, nil)
	require.Equal(t, []string{"bind"}, client.calls)

	// First hop: implicit-create checkpoint.
	driver.ReportStatus(svc.Token, structs.ServiceWireCreated)
	require.Equal(t, structs.ServiceBinding, svc.Status)

	// Second hop: the real bind lands.
	driver.ReportStatus(svc.Token, structs.ServiceWireBound)
	require.Equal(t, structs.ServiceBound, svc.Status)
	require.Len(t, svc.Connections, 1)

	driver.Unbind(svc, conn)
	driver.ReportStatus(svc.Token, structs.ServiceWireUnbound)

	require.Equal(t, structs.ServiceDestroyed, svc.Status)
	require.Equal(t, svc, destroyed)
	require.Empty(t, svc.Connections)
}
