// Package pkgmanager implements the read-only package manager query
// client (spec.md §1): executable path, entry activity, registered
// activities/services with launch modes, priorities, task affinities,
// and app type, fronted by an LRU cache of recent lookups.
package pkgmanager

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/open-vela/amd/am/structs"
)

// Fetcher retrieves a package's metadata from its system of record
// (an installed-package registry, a manifest directory scan, or
// another process entirely — the core never assumes which).
type Fetcher interface {
	FetchPackageInfo(packageName string) (structs.PackageInfo, error)
}

// Lister is an optional capability a Fetcher may implement: enumerate
// every installed package, the way a real manifest-directory scan does
// at boot. *StaticFetcher implements it; a Fetcher fronting a process
// that can't enumerate (e.g. a remote query-only service) need not.
type Lister interface {
	ListPackages() ([]structs.PackageInfo, error)
}

// Client is the cached package manager query client used by am/intent's
// Router. It implements intent.PackageManager.
type Client struct {
	fetcher Fetcher
	cache   *lru.Cache[string, structs.PackageInfo]
	logger  hclog.Logger
}

// DefaultCacheSize bounds how many packages' metadata the client keeps
// warm; package manifests rarely change at runtime so a modest cache
// covers the working set of concurrently-running apps.
const DefaultCacheSize = 64

// NewClient creates a Client backed by fetcher, caching up to
// cacheSize entries (DefaultCacheSize if cacheSize <= 0).
func NewClient(fetcher Fetcher, cacheSize int, logger hclog.Logger) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cache, err := lru.New[string, structs.PackageInfo](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("am: create pkgmanager cache: %w", err)
	}
	return &Client{fetcher: fetcher, cache: cache, logger: logger.Named("pkgmanager")}, nil
}

// Lookup implements intent.PackageManager: returns cached metadata if
// present, else fetches and populates the cache.
func (c *Client) Lookup(packageName string) (structs.PackageInfo, bool) {
	if info, ok := c.cache.Get(packageName); ok {
		return info, true
	}
	info, err := c.fetcher.FetchPackageInfo(packageName)
	if err != nil {
		c.logger.Warn("package lookup failed", "package", packageName, "error", err)
		return structs.PackageInfo{}, false
	}
	c.cache.Add(packageName, info)
	return info, true
}

// Invalidate drops packageName from the cache, e.g. after a manifest
// rescan replaces its declared components.
func (c *Client) Invalidate(packageName string) {
	c.cache.Remove(packageName)
}
