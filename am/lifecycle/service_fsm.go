package lifecycle

import (
	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
)

// ServiceClient is the subset of outbound client methods (spec.md §6)
// the service driver needs.
type ServiceClient interface {
	ScheduleStartService(endpoint structs.EndpointToken, svc *structs.ServiceRecord, intent *structs.Intent) error
	ScheduleStopService(endpoint structs.EndpointToken, token structs.Token) error
	ScheduleBindService(endpoint structs.EndpointToken, svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) error
	ScheduleUnbindService(endpoint structs.EndpointToken, conn structs.Connection) error
}

// ServiceDriver drives a ServiceRecord through start/bind/unbind/stop
// requests, in the order they're issued, implicitly creating the
// client-side instance on the first start or bind (spec.md §4.2).
type ServiceDriver struct {
	board     *taskboard.Board
	client    ServiceClient
	endpoints EndpointResolver
	logger    hclog.Logger

	// OnDestroy fires once a service becomes eligible for automatic
	// destruction (ShouldDestroy()), letting am/manager drop it from its
	// indices without ServiceDriver knowing about them.
	OnDestroy func(svc *structs.ServiceRecord)
}

func NewServiceDriver(board *taskboard.Board, client ServiceClient, endpoints EndpointResolver, logger hclog.Logger) *ServiceDriver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ServiceDriver{board: board, client: client, endpoints: endpoints, logger: logger.Named("lifecycle.service")}
}

// Start issues scheduleStartService; CREATE is implicit if this is the
// service's first ever request.
func (d *ServiceDriver) Start(svc *structs.ServiceRecord, intent *structs.Intent) {
	if svc.Started && svc.Status == structs.ServiceStarted {
		return
	}
	svc.Started = true
	d.driveTo(svc, structs.ServiceStarting, structs.ServiceStarted, func(endpoint structs.EndpointToken) error {
		return d.client.ScheduleStartService(endpoint, svc, intent)
	})
}

// Stop issues scheduleStopService, then checks ShouldDestroy.
func (d *ServiceDriver) Stop(svc *structs.ServiceRecord) {
	svc.Started = false
	d.driveTo(svc, structs.ServiceStopping, structs.ServiceStopped, func(endpoint structs.EndpointToken) error {
		return d.client.ScheduleStopService(endpoint, svc.Token)
	})
}

// Bind issues scheduleBindService for a new connection; CREATE is
// implicit if this is the service's first ever request.
func (d *ServiceDriver) Bind(svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) {
	svc.Connections = append(svc.Connections, conn)
	d.driveTo(svc, structs.ServiceBinding, structs.ServiceBound, func(endpoint structs.EndpointToken) error {
		return d.client.ScheduleBindService(endpoint, svc, conn, intent)
	})
}

// Unbind issues scheduleUnbindService, drops conn from the connection
// list, then checks ShouldDestroy.
func (d *ServiceDriver) Unbind(svc *structs.ServiceRecord, conn structs.Connection) {
	kept := svc.Connections[:0]
	for _, c := range svc.Connections {
		if c.Token != conn.Token {
			kept = append(kept, c)
		}
	}
	svc.Connections = kept
	d.driveTo(svc, structs.ServiceUnbinding, structs.ServiceUnbound, func(endpoint structs.EndpointToken) error {
		return d.client.ScheduleUnbindService(endpoint, conn)
	})
}

// driveTo parks svc in transient (or ServiceCreating, if this is the
// service's very first request, so the implicit-create milestone is
// observable), commits a pending task to land svc in final once the
// client reports in, and then issues call. Committing first means a
// client that reports back from inside call still finds the task.
func (d *ServiceDriver) driveTo(svc *structs.ServiceRecord, transient, final structs.ServiceStatus, call func(structs.EndpointToken) error) {
	endpoint, found := d.endpoints.EndpointForPid(svc.Pid)
	if !found {
		d.logger.Warn("no endpoint for pid, dropping service op", "pid", svc.Pid, "service", svc.Name)
		return
	}

	firstRequest := svc.Status == structs.ServiceCreating
	if !firstRequest {
		svc.Status = transient
	}
	d.board.Commit(&serviceStepTask{
		driver:    d,
		svc:       svc,
		transient: transient,
		final:     final,
		firstHop:  firstRequest,
		label:     taskboard.Label{Kind: taskboard.ServiceStatusReport}.WithToken(svc.Token),
	}, RequestTimeoutMs)

	if err := call(endpoint); err != nil {
		d.logger.Error("service schedule call failed", "service", svc.Name, "error", err)
	}
}

func (d *ServiceDriver) settle(svc *structs.ServiceRecord) {
	if svc.ShouldDestroy() {
		svc.Status = structs.ServiceDestroyed
		if d.OnDestroy != nil {
			d.OnDestroy(svc)
		}
	}
}

// ReportStatus is called by the transport's reportServiceStatus handler.
func (d *ServiceDriver) ReportStatus(token structs.Token, wire structs.ServiceWireStatus) {
	d.board.Trigger(taskboard.Label{
		Kind:  taskboard.ServiceStatusReport,
		Token: token,
		State: int(wire),
	})
}

// AbnormalExit transitions svc straight to DESTROYED without contacting
// the client (spec.md §4.5, §7).
func (d *ServiceDriver) AbnormalExit(svc *structs.ServiceRecord) {
	svc.Status = structs.ServiceDestroyed
	d.board.Trigger(taskboard.Label{
		Kind:  taskboard.ServiceStatusReport,
		Token: svc.Token,
		State: int(structs.ServiceWireDestroyed),
	})
	if d.OnDestroy != nil {
		d.OnDestroy(svc)
	}
}

type serviceStepTask struct {
	driver    *ServiceDriver
	svc       *structs.ServiceRecord
	transient structs.ServiceStatus
	final     structs.ServiceStatus
	firstHop  bool
	label     taskboard.Label
}

func (t *serviceStepTask) Label() taskboard.Label { return t.label }
func (t *serviceStepTask) SingleShot() bool         { return true }

func (t *serviceStepTask) Execute(event taskboard.Label) {
	reported := structs.ServiceWireStatus(event.State).FromWire()
	if t.firstHop && reported != t.final {
		// Implicit-create checkpoint landed (e.g. CREATED); record it,
		// then park in the real transient and wait for the actual
		// final report from the same outstanding client call.
		t.svc.Status = reported
		t.svc.Status = t.transient
		t.driver.board.Commit(&serviceStepTask{
			driver: t.driver, svc: t.svc, transient: t.transient, final: t.final,
			firstHop: false, label: t.label,
		}, RequestTimeoutMs)
		return
	}
	t.svc.Status = t.final
	t.driver.settle(t.svc)
}

func (t *serviceStepTask) Timeout() {
	t.driver.logger.Warn("service transition timed out", "service", t.svc.Name, "status", t.svc.Status, "target", t.final)
}
