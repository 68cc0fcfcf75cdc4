package pkgmanager

import (
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

func TestClient_LookupCachesFetcherResult(t *testing.T) {
	fetcher := NewStaticFetcher()
	fetcher.Put(structs.PackageInfo{PackageName: "com.demo", EntryClass: "Main"})

	c, err := NewClient(fetcher, 0, nil)
	require.NoError(t, err)

	info, ok := c.Lookup("com.demo")
	require.True(t, ok)
	require.Equal(t, "Main", info.EntryClass)

	// Remove from the backing fetcher; cached lookup should still succeed.
	fetcher.Remove("com.demo")
	info2, ok := c.Lookup("com.demo")
	require.True(t, ok)
	require.Equal(t, "Main", info2.EntryClass)
}

func TestClient_LookupMissingPackage(t *testing.T) {
	fetcher := NewStaticFetcher()
	c, err := NewClient(fetcher, 0, nil)
	require.NoError(t, err)

	_, ok := c.Lookup("com.missing")
	require.False(t, ok)
}

func TestClient_InvalidateForcesRefetch(t *testing.T) {
	fetcher := NewStaticFetcher()
	fetcher.Put(structs.PackageInfo{PackageName: "com.demo", EntryClass: "Main"})
	c, err := NewClient(fetcher, 0, nil)
	require.NoError(t, err)

	_, ok := c.Lookup("com.demo")
	require.True(t, ok)

	fetcher.Put(structs.PackageInfo{PackageName: "com.demo", EntryClass: "Updated"})
	c.Invalidate("com.demo")

	info, ok := c.Lookup("com.demo")
	require.True(t, ok)
	require.Equal(t, "Updated", info.EntryClass)
}
