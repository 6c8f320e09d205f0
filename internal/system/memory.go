package system

import (
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// Fraction of available memory the in-memory tile cache may claim.
	tileCacheMemFraction = 0.10

	minTileCacheEntries = 64
	maxTileCacheEntries = 4096
)

// TileCacheBudget returns how many decoded tiles of entryBytes each the
// in-memory cache should hold, derived from currently available system
// memory. Falls back to the minimum when memory stats are unavailable
// (e.g. restricted containers).
func TileCacheBudget(entryBytes int) int {
	if entryBytes <= 0 {
		return minTileCacheEntries
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return minTileCacheEntries
	}

	entries := int(float64(vm.Available) * tileCacheMemFraction / float64(entryBytes))
	if entries < minTileCacheEntries {
		return minTileCacheEntries
	}
	if entries > maxTileCacheEntries {
		return maxTileCacheEntries
	}
	return entries
}
