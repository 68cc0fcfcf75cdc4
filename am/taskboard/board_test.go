package taskboard

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	label      Label
	singleShot bool
	executed   []Label
	timedOut   bool
}

func (f *fakeTask) Label() Label        { return f.label }
func (f *fakeTask) SingleShot() bool    { return f.singleShot }
func (f *fakeTask) Execute(event Label) { f.executed = append(f.executed, event) }
func (f *fakeTask) Timeout()            { f.timedOut = true }

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestBoard_TriggerSingleShotStopsAtFirstMatch(t *testing.T) {
	b := New(testLogger(), false)

	first := &fakeTask{label: Label{Kind: ActivityStatusReport}, singleShot: true}
	second := &fakeTask{label: Label{Kind: ActivityStatusReport}, singleShot: true}
	b.Commit(first, 0)
	b.Commit(second, 0)

	b.Trigger(Label{Kind: ActivityStatusReport})

	require.Len(t, first.executed, 1)
	require.Empty(t, second.executed)
	require.Equal(t, 1, b.Len())
}

func TestBoard_MultiTriggerDeliversToAllMatches(t *testing.T) {
	b := New(testLogger(), false)

	first := &fakeTask{label: Label{Kind: ServiceStatusReport}, singleShot: true}
	second := &fakeTask{label: Label{Kind: ServiceStatusReport}, singleShot: true}
	b.Commit(first, 0)
	b.Commit(second, 0)

	b.Trigger(Label{Kind: ServiceStatusReport, Multi: true})

	require.Len(t, first.executed, 1)
	require.Len(t, second.executed, 1)
	require.Zero(t, b.Len())
}

func TestBoard_LabelPayloadMustMatch(t *testing.T) {
	b := New(testLogger(), false)

	task := &fakeTask{label: Label{Kind: ActivityStatusReport}.WithToken("tok-a"), singleShot: true}
	b.Commit(task, 0)

	b.Trigger(Label{Kind: ActivityStatusReport, Token: "tok-b"})
	require.Empty(t, task.executed, "mismatched token must not trigger")

	b.Trigger(Label{Kind: ActivityStatusReport, Token: "tok-a"})
	require.Len(t, task.executed, 1)
}

func TestBoard_TimeoutFiresOnce(t *testing.T) {
	b := New(testLogger(), false)
	task := &fakeTask{label: Label{Kind: AppAttach}, singleShot: true}
	b.Commit(task, 10*time.Millisecond)

	require.Eventually(t, func() bool { return task.timedOut }, time.Second, time.Millisecond)

	// A late Trigger after timeout must be a no-op: the entry is already
	// purged/done.
	b.Trigger(Label{Kind: AppAttach})
	require.Empty(t, task.executed)
}

func TestBoard_DebugModeIgnoresTimeout(t *testing.T) {
	b := New(testLogger(), true)
	task := &fakeTask{label: Label{Kind: AppAttach}, singleShot: true}
	b.Commit(task, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.False(t, task.timedOut, "debug mode must never arm a deadline")
	require.Equal(t, 1, b.Len())
}
