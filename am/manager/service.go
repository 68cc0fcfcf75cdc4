package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	memdb "github.com/hashicorp/go-memdb"
	"github.com/open-vela/amd/am/intent"
	"github.com/open-vela/amd/am/lifecycle"
	"github.com/open-vela/amd/am/metrics"
	"github.com/open-vela/amd/am/pkgmanager"
	"github.com/open-vela/amd/am/priority"
	"github.com/open-vela/amd/am/process"
	"github.com/open-vela/amd/am/stack"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
	"github.com/open-vela/amd/am/transport"
)

// requestTimeout is the APP_ATTACH pending-task deadline (spec.md §5).
const requestTimeout = lifecycle.RequestTimeoutMs

// Manager is the activity/service manager core (spec.md §1): the single
// object that owns every index and drives every orchestration
// described by spec.md §4. Every exported method is safe to call from
// any goroutine; mu stands in for the single reactor loop spec.md §5
// describes, since this module has no separate event-loop goroutine of
// its own to serialize onto.
type Manager struct {
	mu     sync.Mutex
	logger hclog.Logger

	db    *memdb.MemDB
	board *taskboard.Board

	actDriver *lifecycle.ActivityDriver
	svcDriver *lifecycle.ServiceDriver

	stacks     stack.Factory
	standard   *stack.StandardManager
	systemUI   *stack.SystemUIManager
	router     *intent.Router
	actions    *intent.ActionTable
	dispatcher *transport.Dispatcher
	spawner    Spawner
	pkgs       *pkgmanager.Client
	priorities *priority.List
	lmk        *priority.LMK
	telemetry  *metrics.Collector

	receivers map[string][]receiverEntry

	attaching         map[string]*attachingEntry // packageName -> entry, while spawned-but-not-yet-attached
	attachingByPid    map[int]string             // pid -> packageName, same lifetime as attaching
	registeredActions map[string]bool            // packageName -> its declared <action>s are in m.actions
	runMode           RunMode
	runModePath       string
}

// Config bundles the collaborators NewManager wires together. Fields
// left nil get a workable default (an in-memory package fetcher, a
// null logger, an os/exec spawner), so tests can construct a Manager
// with only the fakes they care about.
type Config struct {
	Logger          hclog.Logger
	PackageRoot     pkgmanager.Fetcher
	Spawner         Spawner
	Debug           bool // taskboard.New's debug flag: never arm timeouts
	RunModePath     string
	LMKConfigPath   string        // optional: am/priority.ParseConfig source, empty uses memory-derived defaults
	LMKPollInterval time.Duration // 0 disables periodic LMK polling
	Metrics         metrics.Config
}

// Spawner is the process-lifecycle surface the manager needs: spawning
// new client processes (RequestAttach), reacting to terminations
// (boot.go's exit pump), and the LMK's graceful-stop-then-SIGTERM
// escalation (spec.md §4.6). *process.ExecSpawner implements it.
type Spawner interface {
	process.Spawner
	Exits() <-chan process.ExitEvent
	IsAlive(pid int) bool
	ForceKill(pid int) error
}

// NewManager builds a fully wired Manager: board, lifecycle drivers,
// stack factory, intent router, transport dispatcher, LMK, go-memdb
// indices (domain stack table in SPEC_FULL.md).
func NewManager(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("manager")

	db, err := memdb.NewMemDB(newSchema())
	if err != nil {
		return nil, fmt.Errorf("am: create manager store: %w", err)
	}

	fetcher := cfg.PackageRoot
	if fetcher == nil {
		fetcher = pkgmanager.NewStaticFetcher()
	}
	pkgs, err := pkgmanager.NewClient(fetcher, 0, logger)
	if err != nil {
		return nil, err
	}

	spawner := cfg.Spawner
	if spawner == nil {
		spawner = process.NewExecSpawner(logger)
	}

	board := taskboard.New(logger, cfg.Debug)
	dispatcher := transport.NewDispatcher()

	m := &Manager{
		logger:            logger,
		db:                db,
		board:             board,
		dispatcher:        dispatcher,
		spawner:           spawner,
		pkgs:              pkgs,
		priorities:        priority.New(),
		actions:           intent.NewActionTable(),
		receivers:         make(map[string][]receiverEntry),
		attaching:         make(map[string]*attachingEntry),
		attachingByPid:    make(map[int]string),
		registeredActions: make(map[string]bool),
		runModePath:       cfg.RunModePath,
	}

	m.actDriver = lifecycle.NewActivityDriver(board, dispatcher, dispatcher, logger)
	m.actDriver.OnSettled = m.onActivitySettled
	m.svcDriver = lifecycle.NewServiceDriver(board, dispatcher, dispatcher, logger)
	m.svcDriver.OnDestroy = m.onServiceDestroyed

	m.systemUI = stack.NewSystemUIManager(m.actDriver, logger)
	m.standard = stack.NewStandardManager(m.actDriver, board, m, func(ev stack.Event) { m.systemUI.OnEvent(ev) }, logger)
	m.stacks = stack.Factory{Standard: m.standard, SystemUI: m.systemUI}

	m.router = intent.NewRouter(pkgs, m.actions, m)

	var lmkRows []priority.ConfigRow
	if cfg.LMKConfigPath != "" {
		rows, err := priority.ParseConfig(cfg.LMKConfigPath)
		if err != nil {
			logger.Warn("lmk config unreadable, falling back to memory-derived defaults", "path", cfg.LMKConfigPath, "error", err)
		} else {
			lmkRows = rows
		}
	}
	lmk, err := priority.NewLMK(m.priorities, m, priority.SystemMemoryReader(), lmkRows, logger)
	if err != nil {
		logger.Warn("lmk defaults unavailable, continuing without eviction policy", "error", err)
	}
	m.lmk = lmk
	if m.lmk != nil {
		m.lmk.SetEvictHook(func(int) { metrics.IncrLMKEviction() })
		if cfg.LMKPollInterval > 0 {
			m.lmk.StartPolling(cfg.LMKPollInterval)
		}
	}

	if cfg.Metrics.Enabled {
		m.telemetry = metrics.NewCollector(metrics.Gauges{
			PriorityListSize:      m.priorities.Len,
			PendingTaskBoardDepth: m.board.Len,
		}, 0, logger)
		m.telemetry.Start()
	}

	if lister, ok := fetcher.(pkgmanager.Lister); ok {
		installed, err := lister.ListPackages()
		if err != nil {
			logger.Warn("list installed packages failed, IntentAction table starts empty", "error", err)
		}
		for _, pkg := range installed {
			m.registerPackageActions(pkg)
		}
	}

	return m, nil
}

// registerPackageActions enters every <action> a package's manifest
// declares into the IntentAction table (spec.md §4.4), mirroring a
// manifest scan at package-install time. Idempotent per package name.
func (m *Manager) registerPackageActions(pkg structs.PackageInfo) {
	if m.registeredActions[pkg.PackageName] {
		return
	}
	m.registeredActions[pkg.PackageName] = true
	for _, a := range pkg.Activities {
		for _, action := range a.Actions {
			m.actions.Register(action, intent.ActionEntry{PackageName: pkg.PackageName, ClassName: a.ClassName, Type: structs.ComponentActivity})
		}
	}
	for _, s := range pkg.Services {
		for _, action := range s.Actions {
			m.actions.Register(action, intent.ActionEntry{PackageName: pkg.PackageName, ClassName: s.ClassName, Type: structs.ComponentService})
		}
	}
}

// onActivitySettled is the lifecycle.ActivityDriver.OnSettled hook:
// when an activity's current status reaches RESUMED, fire the
// ActivityWaitResume event so am/stack's commitWaitResume waiters
// resolve. This is the cross-package contract documented in
// am/stack/standard.go's commitWaitResume.
func (m *Manager) onActivitySettled(act *structs.ActivityRecord) {
	if act.Status != structs.ActivityResumed {
		return
	}
	m.board.Trigger(taskboard.Label{
		Kind:  taskboard.ActivityWaitResume,
		Token: act.Token,
		State: int(structs.ActivityResumed),
	})
}

func (m *Manager) onServiceDestroyed(svc *structs.ServiceRecord) {
	m.deleteService(svc)
	if app, ok := m.appByPid(svc.Pid); ok {
		app.RemoveService(svc.Token)
	}
}

// HasLiveTask implements intent.LiveTaskChecker. Task affinity defaults
// to the package name (am/intent's ResolvePlan), so a task tagged with
// the package name is the live-task signal rule 1 of spec.md §4.4 needs.
func (m *Manager) HasLiveTask(packageName string) bool {
	return m.standard.FindTask(packageName) != nil || m.systemUI.FindTask(packageName) != nil
}

// FindByUniqueName implements intent.Finder.
func (m *Manager) FindByUniqueName(uniqueName string) (*structs.ActivityRecord, string, bool) {
	for _, act := range m.activitiesByUniqueName(uniqueName) {
		if act.IsAlive() {
			return act, act.TaskTag, true
		}
	}
	return nil, "", false
}

// TopOfTask implements intent.Finder.
func (m *Manager) TopOfTask(taskTag string) (*structs.ActivityRecord, bool) {
	task := m.taskByTag(false, taskTag)
	if task == nil {
		task = m.taskByTag(true, taskTag)
	}
	if task == nil {
		return nil, false
	}
	top := task.Top()
	return top, top != nil
}

// OnTaskForeground implements stack.ForegroundNotifier, forwarding
// foreground/background transitions to the priority list (spec.md
// §4.3, §4.6) without am/stack importing am/priority.
func (m *Manager) OnTaskForeground(pid int, foreground bool) {
	if foreground {
		m.priorities.PushForeground(pid, 0)
	} else {
		m.priorities.IntoBackground(pid)
	}
}

func (m *Manager) taskByTag(isSystemUI bool, tag string) *stack.ActivityStack {
	return m.stacks.For(isSystemUI).FindTask(tag)
}

// StartActivity implements the inbound startActivity method (spec.md
// §6, §4.4).
func (m *Manager) StartActivity(caller structs.Token, i *structs.Intent, requestCode int32) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return structs.StatusFor(m.startActivity(caller, i, requestCode))
}

func (m *Manager) startActivity(callerTok structs.Token, i *structs.Intent, requestCode int32) error {
	res, err := m.router.Resolve(i, structs.ComponentActivity)
	if err != nil {
		return fmt.Errorf("%w: %v", structs.ErrBadValue, err)
	}
	if res.Sink != intent.SinkNone {
		return m.dispatchSink(res.Sink, i)
	}
	if res.SwitchToTask {
		return m.switchPackageToForeground(res.PackageName, i)
	}

	pkg, ok := m.pkgs.Lookup(res.PackageName)
	if !ok {
		return fmt.Errorf("am: unknown package %s: %w", res.PackageName, structs.ErrBadValue)
	}
	info, ok := pkg.FindActivity(res.ClassName)
	if !ok {
		return fmt.Errorf("am: %s has no activity %s: %w", res.PackageName, res.ClassName, structs.ErrBadValue)
	}

	uniqueName := res.PackageName + "/" + res.ClassName
	callerCtx := intent.CallerContext{}
	if caller := m.activityByToken(callerTok); caller != nil {
		callerCtx = intent.CallerContext{HasActivity: true, LaunchMode: caller.LaunchMode, TaskTag: caller.TaskTag}
	}
	plan := intent.ResolvePlan(uniqueName, res.PackageName, info, callerCtx, m)
	tm := m.stacks.For(pkg.IsSystemUI)

	if plan.Reuse {
		task := m.taskByTag(pkg.IsSystemUI, plan.ExistingTaskTag)
		if task == nil {
			return fmt.Errorf("am: reuse target task %s vanished: %w", plan.ExistingTaskTag, structs.ErrBadValue)
		}
		tm.TurnToActivity(task, plan.Existing, i, plan.Flags)
		return nil
	}

	newAct := &structs.ActivityRecord{
		UniqueName:  uniqueName,
		Token:       structs.NewToken("act"),
		CallerToken: callerTok,
		RequestCode: requestCode,
		LaunchMode:  info.LaunchMode,
		Status:      structs.ActivityCreating,
		Intent:      i.Clone(),
		PackageName: res.PackageName,
	}

	launch := func(pid int) {
		newAct.Pid = pid
		if err := m.insertActivity(newAct); err != nil {
			m.logger.Error("insert activity failed", "error", err)
			return
		}
		if app, ok := m.appByPid(pid); ok {
			app.AddActivity(newAct.Token)
		}
		task := m.taskByTag(pkg.IsSystemUI, plan.TaskTag)
		if task == nil {
			task = stack.NewActivityStack(plan.TaskTag)
		}
		// Every StandardManager method dereferences its active task
		// unconditionally, so it needs a pivot before the very first
		// push; at boot that first push is whatever SystemReady starts
		// (spec.md §4.8's startHomeActivity, or the boot guide when
		// setup isn't complete), so it seeds the pivot here instead of
		// going through the ordinary push path. Only an actual
		// ACTION_HOME launch marks the pid home for the LMK's OOM
		// scoring rule (spec.md §4.6's SYSTEM_HOME_APP_ADJ).
		if !pkg.IsSystemUI && m.standard.GetActiveTask() == nil {
			m.standard.InitHomeTask(task, newAct)
			if i.Action == structs.ActionHome {
				m.priorities.MarkHome(pid)
			}
			return
		}
		tm.PushNewActivity(task, newAct, plan.Flags)
	}

	if app, ok := m.appByPackage(res.PackageName); ok {
		launch(app.Pid)
		return nil
	}
	return m.RequestAttach(pkg, launch)
}

// dispatchSink implements the system-prefix targets (spec.md §4.4, §6).
func (m *Manager) dispatchSink(sink intent.Sink, i *structs.Intent) error {
	switch sink {
	case intent.SinkTopResume:
		top := m.standard.GetActiveTask()
		if top == nil {
			return fmt.Errorf("am: no active task to resume: %w", structs.ErrBadValue)
		}
		if act := top.Top(); act != nil {
			m.standard.TurnToActivity(top, act, i, 0)
		}
		return nil
	case intent.SinkApplicationForeground:
		top := m.standard.GetActiveTask()
		if top == nil {
			return fmt.Errorf("am: no foreground application: %w", structs.ErrBadValue)
		}
		if app, ok := m.appByPid(topPid(top)); ok {
			return m.dispatcher.SetForegroundApplication(app.Endpoint, true)
		}
		return nil
	case intent.SinkApplicationHome:
		return m.startActivity("", &structs.Intent{Action: structs.ActionHome}, 0)
	}
	return fmt.Errorf("am: unknown sink: %w", structs.ErrBadValue)
}

func topPid(task *stack.ActivityStack) int {
	if top := task.Top(); top != nil {
		return top.Pid
	}
	return 0
}

// switchPackageToForeground implements rule 1's "package already has a
// live task" shortcut (spec.md §4.4): bring the existing task forward
// instead of resolving a fresh component.
func (m *Manager) switchPackageToForeground(packageName string, i *structs.Intent) error {
	isSystemUI := false
	if pkg, ok := m.pkgs.Lookup(packageName); ok {
		isSystemUI = pkg.IsSystemUI
	}
	task := m.taskByTag(isSystemUI, packageName)
	if task == nil {
		return fmt.Errorf("am: no live task for %s: %w", packageName, structs.ErrBadValue)
	}
	m.stacks.For(isSystemUI).SwitchTaskToActive(task, i)
	return nil
}

// StopActivity implements the inbound stopActivity method: a synonym
// for finishActivity addressed by intent rather than token, used by
// clients that don't hold the activity's token directly.
func (m *Manager) StopActivity(i *structs.Intent, resultCode int32) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, class := i.TargetPackage()
	if class == "" {
		return structs.StatusBadValue
	}
	uniqueName := pkg + "/" + class
	for _, act := range m.activitiesByUniqueName(uniqueName) {
		if act.IsAlive() {
			m.finishActivity(act)
			return structs.StatusOK
		}
	}
	return structs.StatusBadValue
}

// FinishActivity implements the inbound finishActivity method.
func (m *Manager) FinishActivity(token structs.Token, resultCode int32, resultData *structs.Intent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	act := m.activityByToken(token)
	if act == nil {
		return false
	}
	if caller := m.activityByToken(act.CallerToken); caller != nil {
		if endpoint, ok := m.dispatcher.EndpointForPid(caller.Pid); ok {
			if err := m.dispatcher.OnActivityResult(endpoint, caller.Token, act.RequestCode, resultCode, resultData); err != nil {
				m.logger.Warn("deliver activity result failed", "error", err)
			}
		}
	}
	m.finishActivity(act)
	return true
}

func (m *Manager) finishActivity(act *structs.ActivityRecord) {
	isSystemUI := false
	if pkg, ok := m.pkgs.Lookup(act.PackageName); ok {
		isSystemUI = pkg.IsSystemUI
	}
	m.stacks.For(isSystemUI).FinishActivity(act)
}

// MoveActivityTaskToBackground implements the inbound method of the
// same name (spec.md §6).
func (m *Manager) MoveActivityTaskToBackground(token structs.Token, nonRoot bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	act := m.activityByToken(token)
	if act == nil {
		return false
	}
	isSystemUI := false
	if pkg, ok := m.pkgs.Lookup(act.PackageName); ok {
		isSystemUI = pkg.IsSystemUI
	}
	tm := m.stacks.For(isSystemUI)
	task := m.taskByTag(isSystemUI, act.TaskTag)
	if task == nil {
		return false
	}
	tm.MoveTaskToBackground(task)
	return true
}

// ReportActivityStatus implements the inbound reportActivityStatus
// method, forwarding to the activity driver.
func (m *Manager) ReportActivityStatus(token structs.Token, status structs.WireStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actDriver.ReportStatus(token, status)
}

// StartService implements the inbound startService method.
func (m *Manager) StartService(i *structs.Intent) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return structs.StatusFor(m.startService(i))
}

func (m *Manager) startService(i *structs.Intent) error {
	res, err := m.router.Resolve(i, structs.ComponentService)
	if err != nil {
		return fmt.Errorf("%w: %v", structs.ErrBadValue, err)
	}
	if res.Sink != intent.SinkNone {
		return fmt.Errorf("am: services have no system sink: %w", structs.ErrBadValue)
	}
	pkg, ok := m.pkgs.Lookup(res.PackageName)
	if !ok {
		return fmt.Errorf("am: unknown package %s: %w", res.PackageName, structs.ErrBadValue)
	}
	svcInfo, ok := pkg.FindService(res.ClassName)
	if !ok {
		return fmt.Errorf("am: %s has no service %s: %w", res.PackageName, res.ClassName, structs.ErrBadValue)
	}
	name := res.PackageName + "/" + res.ClassName

	start := func(pid int) {
		svc, ok := m.serviceByName(name)
		if !ok {
			svc = &structs.ServiceRecord{Name: name, Token: structs.NewToken("svc"), Pid: pid, PackageName: res.PackageName, Priority: svcInfo.Priority, Status: structs.ServiceCreating}
			if err := m.insertService(svc); err != nil {
				m.logger.Error("insert service failed", "error", err)
				return
			}
			if app, ok := m.appByPid(pid); ok {
				app.AddService(svc.Token)
			}
		}
		m.svcDriver.Start(svc, i.Clone())
	}

	if app, ok := m.appByPackage(res.PackageName); ok {
		start(app.Pid)
		return nil
	}
	return m.RequestAttach(pkg, start)
}

// StopService implements the inbound stopService method.
func (m *Manager) StopService(i *structs.Intent) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, class := i.TargetPackage()
	if class == "" {
		return structs.StatusBadValue
	}
	svc, ok := m.serviceByName(pkg + "/" + class)
	if !ok {
		return structs.StatusDeadObject
	}
	m.svcDriver.Stop(svc)
	return structs.StatusOK
}

// StopServiceByToken implements the inbound stopServiceByToken method.
func (m *Manager) StopServiceByToken(token structs.Token) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc := m.serviceByToken(token)
	if svc == nil {
		return structs.StatusDeadObject
	}
	m.svcDriver.Stop(svc)
	return structs.StatusOK
}

// BindService implements the inbound bindService method.
func (m *Manager) BindService(caller structs.Token, i *structs.Intent, conn structs.Connection) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := m.router.Resolve(i, structs.ComponentService)
	if err != nil {
		return structs.StatusBadValue
	}
	pkg, ok := m.pkgs.Lookup(res.PackageName)
	if !ok {
		return structs.StatusBadValue
	}
	if _, ok := pkg.FindService(res.ClassName); !ok {
		return structs.StatusBadValue
	}
	name := res.PackageName + "/" + res.ClassName
	conn.CallerToken = caller

	bind := func(pid int) {
		svc, ok := m.serviceByName(name)
		if !ok {
			svc = &structs.ServiceRecord{Name: name, Token: structs.NewToken("svc"), Pid: pid, PackageName: res.PackageName, Status: structs.ServiceCreating}
			if err := m.insertService(svc); err != nil {
				m.logger.Error("insert service failed", "error", err)
				return
			}
			if app, ok := m.appByPid(pid); ok {
				app.AddService(svc.Token)
			}
		}
		m.svcDriver.Bind(svc, conn, i.Clone())
	}

	if app, ok := m.appByPackage(res.PackageName); ok {
		bind(app.Pid)
		return structs.StatusOK
	}
	if err := m.RequestAttach(pkg, bind); err != nil {
		return structs.StatusFor(err)
	}
	return structs.StatusOK
}

// UnbindService implements the inbound unbindService method.
func (m *Manager) UnbindService(conn structs.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range m.listServices() {
		for _, c := range svc.Connections {
			if c.Token == conn.Token {
				m.svcDriver.Unbind(svc, conn)
				return
			}
		}
	}
}

// PublishService implements the inbound publishService method: records
// the binder token a bound service publishes back to callers.
func (m *Manager) PublishService(token structs.Token, binder structs.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc := m.serviceByToken(token); svc != nil {
		svc.Binder = binder
	}
}

// ReportServiceStatus implements the inbound reportServiceStatus method.
func (m *Manager) ReportServiceStatus(token structs.Token, status structs.ServiceWireStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.svcDriver.ReportStatus(token, status)
}

// Close stops every background goroutine NewManager started (LMK
// polling, metrics collection). Safe to call even if neither was
// enabled.
func (m *Manager) Close() {
	if m.lmk != nil {
		m.lmk.Stop()
	}
	if m.telemetry != nil {
		m.telemetry.Stop()
	}
}
