package pkgmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/open-vela/amd/am/structs"
)

// manifest is the on-disk HCL shape of one package's manifest file
// (spec.md §1's "package manager" system of record, here a flat
// directory of "<package-name>.hcl" files — one of the concrete
// Fetchers the core never assumes over StaticFetcher's in-memory one).
type manifest struct {
	PackageName  string             `hcl:"package_name"`
	ExecFile     string             `hcl:"exec_file"`
	EntryClass   string             `hcl:"entry_class"`
	IsSystemUI   bool               `hcl:"is_system_ui"`
	SupportMulti bool               `hcl:"support_multi"`
	Activity     []manifestActivity `hcl:"activity"`
	Service      []manifestService  `hcl:"service"`
}

type manifestActivity struct {
	ClassName    string   `hcl:"class_name,key"`
	LaunchMode   string   `hcl:"launch_mode"`
	TaskAffinity string   `hcl:"task_affinity"`
	IsEntry      bool     `hcl:"is_entry"`
	Actions      []string `hcl:"actions"`
}

type manifestService struct {
	ClassName string   `hcl:"class_name,key"`
	Priority  int      `hcl:"priority"`
	Actions   []string `hcl:"actions"`
}

// DirFetcher is a Fetcher/Lister backed by a directory of "*.hcl"
// package manifest files, re-read on every lookup so an operator
// dropping in a new manifest takes effect without an agent restart
// (am/pkgmanager.Client's LRU cache bounds how often that actually
// happens on the hot path).
type DirFetcher struct {
	mu  sync.Mutex
	dir string
}

// NewDirFetcher creates a DirFetcher rooted at dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

// FetchPackageInfo implements Fetcher.
func (f *DirFetcher) FetchPackageInfo(packageName string) (structs.PackageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(filepath.Join(f.dir, packageName+".hcl"))
}

// ListPackages implements Lister by decoding every "*.hcl" file in dir.
func (f *DirFetcher) ListPackages() ([]structs.PackageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("am: read package root %s: %w", f.dir, err)
	}
	var out []structs.PackageInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".hcl") {
			continue
		}
		info, err := f.load(filepath.Join(f.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (f *DirFetcher) load(path string) (structs.PackageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return structs.PackageInfo{}, err
	}
	var m manifest
	if err := hcl.Decode(&m, string(data)); err != nil {
		return structs.PackageInfo{}, fmt.Errorf("am: parse manifest %s: %w", path, err)
	}

	info := structs.PackageInfo{
		PackageName:  m.PackageName,
		ExecFile:     m.ExecFile,
		EntryClass:   m.EntryClass,
		IsSystemUI:   m.IsSystemUI,
		SupportMulti: m.SupportMulti,
	}
	for _, a := range m.Activity {
		info.Activities = append(info.Activities, structs.ActivityInfo{
			ClassName:    a.ClassName,
			LaunchMode:   parseLaunchMode(a.LaunchMode),
			TaskAffinity: a.TaskAffinity,
			IsEntry:      a.IsEntry,
			Actions:      a.Actions,
		})
	}
	for _, s := range m.Service {
		info.Services = append(info.Services, structs.ServiceInfo{
			ClassName: s.ClassName,
			Priority:  s.Priority,
			Actions:   s.Actions,
		})
	}
	return info, nil
}

func parseLaunchMode(s string) structs.LaunchMode {
	switch strings.ToUpper(s) {
	case "SINGLE_TOP":
		return structs.LaunchSingleTop
	case "SINGLE_TASK":
		return structs.LaunchSingleTask
	case "SINGLE_INSTANCE":
		return structs.LaunchSingleInstance
	default:
		return structs.LaunchStandard
	}
}
