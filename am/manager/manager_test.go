package manager

import (
	"sync"

	"github.com/open-vela/amd/am/pkgmanager"
	"github.com/open-vela/amd/am/process"
	"github.com/open-vela/amd/am/structs"
)

// autoAckClient is a fake transport.ClientThread that immediately
// reports back the wire status a real client would send once it
// finished handling a schedule call, driving the lifecycle drivers all
// the way to their settled state within a single call stack. It talks
// directly to the owning Manager's drivers (bypassing mu, which the
// caller already holds) rather than through the locked
// ReportActivityStatus/ReportServiceStatus entry points.
type autoAckClient struct {
	mgr *Manager

	mu       sync.Mutex
	launched []*structs.ActivityRecord
	results  []activityResult
	received []receivedIntent
}

type activityResult struct {
	token       structs.Token
	requestCode int32
	resultCode  int32
	data        *structs.Intent
}

type receivedIntent struct {
	token  structs.Token
	intent *structs.Intent
}

func (c *autoAckClient) ScheduleLaunchActivity(act *structs.ActivityRecord) error {
	c.mu.Lock()
	c.launched = append(c.launched, act)
	c.mu.Unlock()
	c.mgr.actDriver.ReportStatus(act.Token, structs.WireCreated)
	return nil
}

func (c *autoAckClient) ScheduleStartActivity(token structs.Token) error {
	c.mgr.actDriver.ReportStatus(token, structs.WireStarted)
	return nil
}

func (c *autoAckClient) ScheduleResumeActivity(token structs.Token, intent *structs.Intent) error {
	c.mgr.actDriver.ReportStatus(token, structs.WireResumed)
	return nil
}

func (c *autoAckClient) SchedulePauseActivity(token structs.Token) error {
	c.mgr.actDriver.ReportStatus(token, structs.WirePaused)
	return nil
}

func (c *autoAckClient) ScheduleStopActivity(token structs.Token) error {
	c.mgr.actDriver.ReportStatus(token, structs.WireStopped)
	return nil
}

func (c *autoAckClient) ScheduleDestroyActivity(token structs.Token) error {
	c.mgr.actDriver.ReportStatus(token, structs.WireDestroyed)
	return nil
}

func (c *autoAckClient) OnActivityResult(token structs.Token, requestCode, resultCode int32, data *structs.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, activityResult{token: token, requestCode: requestCode, resultCode: resultCode, data: data})
	return nil
}

func (c *autoAckClient) ScheduleStartService(svc *structs.ServiceRecord, intent *structs.Intent) error {
	c.mgr.svcDriver.ReportStatus(svc.Token, structs.ServiceWireStarted)
	return nil
}

func (c *autoAckClient) ScheduleStopService(token structs.Token) error {
	c.mgr.svcDriver.ReportStatus(token, structs.ServiceWireStopped)
	return nil
}

func (c *autoAckClient) ScheduleBindService(svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) error {
	c.mgr.svcDriver.ReportStatus(svc.Token, structs.ServiceWireBound)
	return nil
}

func (c *autoAckClient) ScheduleUnbindService(conn structs.Connection) error {
	return nil
}

func (c *autoAckClient) ScheduleReceiveIntent(token structs.Token, intent *structs.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, receivedIntent{token: token, intent: intent})
	return nil
}

func (c *autoAckClient) SetForegroundApplication(foreground bool) error { return nil }
func (c *autoAckClient) TerminateApplication() error                   { return nil }

// fakeSpawner is a manager.Spawner that hands out sequential pids
// without forking any real process.
type fakeSpawner struct {
	mu      sync.Mutex
	nextPid int
	spawned []string // packageName per Spawn call, in order
	exits   chan process.ExitEvent
	alive   map[int]bool
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{nextPid: 100, exits: make(chan process.ExitEvent, 16), alive: make(map[int]bool)}
}

func (s *fakeSpawner) Spawn(execFile string, args []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPid++
	pid := s.nextPid
	if len(args) > 0 {
		s.spawned = append(s.spawned, args[0])
	}
	s.alive[pid] = true
	return pid, nil
}

func (s *fakeSpawner) Exits() <-chan process.ExitEvent { return s.exits }

func (s *fakeSpawner) IsAlive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[pid]
}

func (s *fakeSpawner) ForceKill(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alive, pid)
	return nil
}

// kill marks pid dead and delivers its exit event, as a real
// ExecSpawner's waiter goroutine would.
func (s *fakeSpawner) kill(pid int) {
	s.mu.Lock()
	delete(s.alive, pid)
	s.mu.Unlock()
	s.exits <- process.ExitEvent{Pid: pid}
}

// newTestManager builds a Manager wired to a fakeSpawner and a
// StaticFetcher pre-populated with pkgs, plus an autoAckClient that
// every spawned pid is attached with.
func newTestManager(pkgs ...structs.PackageInfo) (*Manager, *fakeSpawner) {
	fetcher := pkgmanager.NewStaticFetcher()
	for _, p := range pkgs {
		fetcher.Put(p)
	}
	spawner := newFakeSpawner()
	m, err := NewManager(Config{PackageRoot: fetcher, Spawner: spawner, Debug: true})
	if err != nil {
		panic(err)
	}
	return m, spawner
}

func (m *Manager) attachPid(pid int) *autoAckClient {
	client := &autoAckClient{mgr: m}
	m.AttachApplication(pid, 0, client)
	return client
}
