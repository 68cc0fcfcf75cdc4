package transport

import (
	"sync"

	"github.com/open-vela/amd/am/structs"
)

// Call records one outbound schedule invocation a LoopbackClient
// received, for test assertions.
type Call struct {
	Method string
	Token  structs.Token
	Intent *structs.Intent
}

// LoopbackClient is a single-process ClientThread for tests and for
// embedding the core without a real IPC transport. Every Intent payload
// is round-tripped through EncodeIntent/DecodeIntent so the wire format
// is exercised even when client and server share a process.
type LoopbackClient struct {
	mu    sync.Mutex
	Calls []Call

	// Terminated is set by TerminateApplication, for LMK-executor tests.
	Terminated bool
}

// NewLoopbackClient creates an empty LoopbackClient.
func NewLoopbackClient() *LoopbackClient { return &LoopbackClient{} }

func roundTripIntent(i *structs.Intent) (*structs.Intent, error) {
	if i == nil {
		return nil, nil
	}
	b, err := structs.EncodeIntent(i)
	if err != nil {
		return nil, err
	}
	return structs.DecodeIntent(b)
}

func (c *LoopbackClient) record(method string, token structs.Token, intent *structs.Intent) error {
	rt, err := roundTripIntent(intent)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.Calls = append(c.Calls, Call{Method: method, Token: token, Intent: rt})
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the calls recorded so far.
func (c *LoopbackClient) Snapshot() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.Calls...)
}

func (c *LoopbackClient) ScheduleLaunchActivity(act *structs.ActivityRecord) error {
	return c.record("ScheduleLaunchActivity", act.Token, act.Intent)
}

func (c *LoopbackClient) ScheduleStartActivity(token structs.Token) error {
	return c.record("ScheduleStartActivity", token, nil)
}

func (c *LoopbackClient) ScheduleResumeActivity(token structs.Token, intent *structs.Intent) error {
	return c.record("ScheduleResumeActivity", token, intent)
}

func (c *LoopbackClient) SchedulePauseActivity(token structs.Token) error {
	return c.record("SchedulePauseActivity", token, nil)
}

func (c *LoopbackClient) ScheduleStopActivity(token structs.Token) error {
	return c.record("ScheduleStopActivity", token, nil)
}

func (c *LoopbackClient) ScheduleDestroyActivity(token structs.Token) error {
	return c.record("ScheduleDestroyActivity", token, nil)
}

func (c *LoopbackClient) OnActivityResult(token structs.Token, requestCode, resultCode int32, data *structs.Intent) error {
	return c.record("OnActivityResult", token, data)
}

func (c *LoopbackClient) ScheduleStartService(svc *structs.ServiceRecord, intent *structs.Intent) error {
	return c.record("ScheduleStartService", svc.Token, intent)
}

func (c *LoopbackClient) ScheduleStopService(token structs.Token) error {
	return c.record("ScheduleStopService", token, nil)
}

func (c *LoopbackClient) ScheduleBindService(svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) error {
	return c.record("ScheduleBindService", svc.Token, intent)
}

func (c *LoopbackClient) ScheduleUnbindService(conn structs.Connection) error {
	return c.record("ScheduleUnbindService", conn.Token, nil)
}

func (c *LoopbackClient) ScheduleReceiveIntent(token structs.Token, intent *structs.Intent) error {
	return c.record("ScheduleReceiveIntent", token, intent)
}

func (c *LoopbackClient) SetForegroundApplication(foreground bool) error {
	return c.record("SetForegroundApplication", "", nil)
}

func (c *LoopbackClient) TerminateApplication() error {
	c.mu.Lock()
	c.Terminated = true
	c.mu.Unlock()
	return c.record("TerminateApplication", "", nil)
}
