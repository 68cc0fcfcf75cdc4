package pkgmanager

import (
	"fmt"
	"sync"

	"github.com/open-vela/amd/am/structs"
)

// StaticFetcher is a Fetcher backed by an in-memory map, registered at
// boot from whatever package-root scan or install registry populates
// it. It is also the Fetcher tests use in place of a real manifest
// store.
type StaticFetcher struct {
	mu   sync.RWMutex
	pkgs map[string]structs.PackageInfo
}

// NewStaticFetcher creates an empty StaticFetcher.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{pkgs: make(map[string]structs.PackageInfo)}
}

// Put registers or replaces a package's metadata.
func (f *StaticFetcher) Put(info structs.PackageInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pkgs[info.PackageName] = info
}

// Remove drops a package's metadata, e.g. on uninstall.
func (f *StaticFetcher) Remove(packageName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pkgs, packageName)
}

// FetchPackageInfo implements Fetcher.
func (f *StaticFetcher) FetchPackageInfo(packageName string) (structs.PackageInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	info, ok := f.pkgs[packageName]
	if !ok {
		return structs.PackageInfo{}, fmt.Errorf("am: package %q not found", packageName)
	}
	return info, nil
}

// ListPackages implements Lister, returning every registered package's
// metadata in no particular order.
func (f *StaticFetcher) ListPackages() ([]structs.PackageInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]structs.PackageInfo, 0, len(f.pkgs))
	for _, info := range f.pkgs {
		out = append(out, info)
	}
	return out, nil
}
