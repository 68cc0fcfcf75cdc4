package structs

// ServiceStatus is the service lifecycle state (spec.md §4.2, simpler
// rule than activities: start/bind/unbind/stop driven in request order,
// CREATE implicit on first start or bind).
type ServiceStatus int

const (
	ServiceCreating ServiceStatus = iota
	ServiceCreated
	ServiceStarting
	ServiceStarted
	ServiceBinding
	ServiceBound
	ServiceUnbinding
	ServiceUnbound
	ServiceDestroying
	ServiceDestroyed
)

var serviceStatusNames = map[ServiceStatus]string{
	ServiceCreating:   "CREATING",
	ServiceCreated:    "CREATED",
	ServiceStarting:   "STARTING",
	ServiceStarted:    "STARTED",
	ServiceBinding:    "BINDING",
	ServiceBound:      "BOUND",
	ServiceUnbinding:  "UNBINDING",
	ServiceUnbound:    "UNBOUND",
	ServiceDestroying: "DESTROYING",
	ServiceDestroyed:  "DESTROYED",
}

func (s ServiceStatus) String() string {
	if n, ok := serviceStatusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Connection represents one bindService caller still attached to a
// ServiceRecord.
type Connection struct {
	Token       Token
	CallerToken Token
}

// ServiceRecord is a single running (or starting) service instance.
type ServiceRecord struct {
	Name   string // "pkg/cls"
	Token  Token
	Status ServiceStatus

	Binder Token // published binder token, empty until publishService

	Started     bool
	Connections []Connection

	Pid         int
	PackageName string
	Priority    int
}

// IsAlive reports whether the record still occupies a primary-index
// slot.
func (s *ServiceRecord) IsAlive() bool { return s.Status != ServiceDestroyed }

// ShouldDestroy implements spec.md §4.2's automatic-destruction rule:
// "Destruction is automatic when (not started) AND (no bindings)".
func (s *ServiceRecord) ShouldDestroy() bool {
	return !s.Started && len(s.Connections) == 0
}

// ServiceWireStatus is the service status as reported across the
// transport by reportServiceStatus. Spec.md §6 only tabulates the
// activity wire codes explicitly, but states the even/odd convention
// ("odd numbers are *-ING transients") holds module-wide; ServiceWireStatus
// extends that table with the two states activities don't have (BOUND,
// UNBOUND) in the next free even slots.
type ServiceWireStatus int32

const (
	ServiceWireInit      ServiceWireStatus = 0
	ServiceWireCreated   ServiceWireStatus = 2
	ServiceWireStarted   ServiceWireStatus = 4
	ServiceWireBound     ServiceWireStatus = 6
	ServiceWireStopped   ServiceWireStatus = 8
	ServiceWireUnbound   ServiceWireStatus = 10
	ServiceWireDestroyed ServiceWireStatus = 12
)

// FromWire converts a client-reported stable wire status into the
// matching server-internal ServiceStatus.
func (w ServiceWireStatus) FromWire() ServiceStatus {
	switch w {
	case ServiceWireCreated:
		return ServiceCreated
	case ServiceWireStarted:
		return ServiceStarted
	case ServiceWireBound:
		return ServiceBound
	case ServiceWireStopped:
		return ServiceStopped
	case ServiceWireUnbound:
		return ServiceUnbound
	case ServiceWireDestroyed:
		return ServiceDestroyed
	default:
		return ServiceCreating
	}
}
