package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
)

// SysHealth is the process snapshot served by the health endpoint.
type SysHealth struct {
	AllocMB    uint64
	Goroutines int
	CacheSize  string
}

// GetSysHealth samples heap usage, the goroutine count, and the on-disk
// size of the cache directory.
func GetSysHealth(cacheDir string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:    m.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		CacheSize:  formatBytes(dirSize(cacheDir)),
	}
}

// dirSize sums the file sizes under path. Unreadable entries abort the walk
// and whatever was counted so far is reported.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
