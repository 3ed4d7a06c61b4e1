package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryStats is a snapshot of process and host memory
type MemoryStats struct {
	HeapAlloc     uint64
	SysAlloc      uint64
	HostTotal     uint64
	HostAvailable uint64
	HostUsedPct   float64
}

// ReadMemoryStats collects Go runtime and host memory figures. Host figures
// stay zero if the platform does not report them.
func ReadMemoryStats() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := MemoryStats{
		HeapAlloc: ms.HeapAlloc,
		SysAlloc:  ms.Sys,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostTotal = vm.Total
		stats.HostAvailable = vm.Available
		stats.HostUsedPct = vm.UsedPercent
	}

	return stats
}

func (s MemoryStats) String() string {
	return fmt.Sprintf("heap %s, sys %s, host %s/%s free (%.1f%% used)",
		FormatBytes(s.HeapAlloc), FormatBytes(s.SysAlloc),
		FormatBytes(s.HostAvailable), FormatBytes(s.HostTotal), s.HostUsedPct)
}

// MaxCanvasPixels caps the pixel count of a rendered page so a full-page
// mask plus its visited bitmap and work stack stay well inside free memory.
// The cap never goes below floor.
func MaxCanvasPixels(floor int) int {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return floor
	}
	// RGBA page (4) + mask (1) + visited (1) + worst-case stack (8) per pixel,
	// using at most a quarter of available memory
	limit := int(vm.Available / 4 / 14)
	return max(limit, floor)
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
