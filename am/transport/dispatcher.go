package transport

import (
	"fmt"
	"sync"

	"github.com/open-vela/amd/am/structs"
)

// Dispatcher is the server-side address book of connected clients: it
// maps EndpointToken to ClientThread and pid to EndpointToken, and
// implements both lifecycle.ActivityClient and lifecycle.ServiceClient
// by routing each call to the right connection's ClientThread (spec.md
// §6). It also implements lifecycle.EndpointResolver directly.
type Dispatcher struct {
	mu        sync.RWMutex
	endpoints map[structs.EndpointToken]ClientThread
	byPid     map[int]structs.EndpointToken
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		endpoints: make(map[structs.EndpointToken]ClientThread),
		byPid:     make(map[int]structs.EndpointToken),
	}
}

// Register associates pid with endpoint and client, called once
// attachApplication resolves a newly-launched process (spec.md §4.5).
func (d *Dispatcher) Register(pid int, endpoint structs.EndpointToken, client ClientThread) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints[endpoint] = client
	d.byPid[pid] = endpoint
}

// Unregister drops pid's connection, called on process-exit handling
// (spec.md §4.5's procAppTerminated).
func (d *Dispatcher) Unregister(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if endpoint, ok := d.byPid[pid]; ok {
		delete(d.endpoints, endpoint)
		delete(d.byPid, pid)
	}
}

// EndpointForPid implements lifecycle.EndpointResolver.
func (d *Dispatcher) EndpointForPid(pid int) (structs.EndpointToken, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byPid[pid]
	return e, ok
}

func (d *Dispatcher) clientFor(endpoint structs.EndpointToken) (ClientThread, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("am: dead endpoint %s", endpoint)
	}
	return c, nil
}

// ScheduleLaunchActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) ScheduleLaunchActivity(endpoint structs.EndpointToken, act *structs.ActivityRecord) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleLaunchActivity(act)
}

// ScheduleStartActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) ScheduleStartActivity(endpoint structs.EndpointToken, token structs.Token) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleStartActivity(token)
}

// ScheduleResumeActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) ScheduleResumeActivity(endpoint structs.EndpointToken, token structs.Token, intent *structs.Intent) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleResumeActivity(token, intent)
}

// SchedulePauseActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) SchedulePauseActivity(endpoint structs.EndpointToken, token structs.Token) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.SchedulePauseActivity(token)
}

// ScheduleStopActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) ScheduleStopActivity(endpoint structs.EndpointToken, token structs.Token) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleStopActivity(token)
}

// ScheduleDestroyActivity implements lifecycle.ActivityClient.
func (d *Dispatcher) ScheduleDestroyActivity(endpoint structs.EndpointToken, token structs.Token) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleDestroyActivity(token)
}

// ScheduleStartService implements lifecycle.ServiceClient.
func (d *Dispatcher) ScheduleStartService(endpoint structs.EndpointToken, svc *structs.ServiceRecord, intent *structs.Intent) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleStartService(svc, intent)
}

// ScheduleStopService implements lifecycle.ServiceClient.
func (d *Dispatcher) ScheduleStopService(endpoint structs.EndpointToken, token structs.Token) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleStopService(token)
}

// ScheduleBindService implements lifecycle.ServiceClient.
func (d *Dispatcher) ScheduleBindService(endpoint structs.EndpointToken, svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleBindService(svc, conn, intent)
}

// ScheduleUnbindService implements lifecycle.ServiceClient.
func (d *Dispatcher) ScheduleUnbindService(endpoint structs.EndpointToken, conn structs.Connection) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleUnbindService(conn)
}

// OnActivityResult delivers a finished activity's result back to its
// caller (spec.md §6's onActivityResult outbound method).
func (d *Dispatcher) OnActivityResult(endpoint structs.EndpointToken, token structs.Token, requestCode, resultCode int32, data *structs.Intent) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.OnActivityResult(token, requestCode, resultCode, data)
}

// ScheduleReceiveIntent implements postIntent's client-side delivery
// (spec.md §4.7).
func (d *Dispatcher) ScheduleReceiveIntent(endpoint structs.EndpointToken, token structs.Token, intent *structs.Intent) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.ScheduleReceiveIntent(token, intent)
}

// SetForegroundApplication notifies a client of its foreground status.
func (d *Dispatcher) SetForegroundApplication(endpoint structs.EndpointToken, foreground bool) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.SetForegroundApplication(foreground)
}

// TerminateApplication asks a client to exit, used by the LMK executor.
func (d *Dispatcher) TerminateApplication(endpoint structs.EndpointToken) error {
	c, err := d.clientFor(endpoint)
	if err != nil {
		return err
	}
	return c.TerminateApplication()
}
