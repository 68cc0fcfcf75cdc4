package structs

// ComponentType distinguishes activities from services when resolving
// an action through the IntentAction table (spec.md §4.4).
type ComponentType int

const (
	ComponentActivity ComponentType = iota
	ComponentService
)

// ActivityInfo is the package manager's static declaration of one
// activity: its launch mode and task affinity as shipped in the
// package manifest, before any per-launch policy (entry-activity
// override, caller-context rule) is applied.
type ActivityInfo struct {
	ClassName    string
	LaunchMode   LaunchMode
	TaskAffinity string
	IsEntry      bool
	Actions      []string // action strings this activity registers for
}

// ServiceInfo is the package manager's static declaration of one
// service.
type ServiceInfo struct {
	ClassName string
	Priority  int
	Actions   []string
}

// PackageInfo is the read-only metadata the package manager returns for
// a package (spec.md §1: "a read-only query service returning package
// metadata").
type PackageInfo struct {
	PackageName  string
	ExecFile     string
	EntryClass   string
	IsSystemUI   bool
	Activities   []ActivityInfo
	Services     []ServiceInfo
	SupportMulti bool // isSupportMultiTask
}

// FindActivity returns the declared ActivityInfo for a class name, if any.
func (p *PackageInfo) FindActivity(class string) (ActivityInfo, bool) {
	for _, a := range p.Activities {
		if a.ClassName == class {
			return a, true
		}
	}
	return ActivityInfo{}, false
}

// FindService returns the declared ServiceInfo for a class name, if any.
func (p *PackageInfo) FindService(class string) (ServiceInfo, bool) {
	for _, s := range p.Services {
		if s.ClassName == class {
			return s, true
		}
	}
	return ServiceInfo{}, false
}

// PriorityLevel is the declared background priority band used by the
// process priority policy (spec.md §3, §4.6).
type PriorityLevel int

const (
	PriorityPersistent PriorityLevel = iota
	PriorityHigh
	PriorityMiddle
	PriorityLow
)

func (p PriorityLevel) String() string {
	switch p {
	case PriorityPersistent:
		return "PERSISTENT"
	case PriorityHigh:
		return "HIGH"
	case PriorityMiddle:
		return "MIDDLE"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}
