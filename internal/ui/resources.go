package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceStats holds host resource usage shown in the dashboard header.
type ResourceStats struct {
	CPUPercent  float64
	MemoryUsed  uint64
	MemoryTotal uint64
	MemPercent  float64
	CPUTemp     float64 // in Celsius, -1 if unavailable
}

// GetResourceStats fetches current system resource statistics
func GetResourceStats(ctx context.Context) ResourceStats {
	stats := ResourceStats{CPUTemp: -1}

	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryUsed = memInfo.Used
		stats.MemoryTotal = memInfo.Total
		stats.MemPercent = memInfo.UsedPercent
	}

	// Sensors often return partial results alongside a warning error.
	temps, _ := host.SensorsTemperaturesWithContext(ctx)
	stats.CPUTemp = cpuTemperature(temps)

	return stats
}

// cpuTemperature picks the most plausible CPU reading from the sensors.
func cpuTemperature(temps []host.TemperatureStat) float64 {
	for _, temp := range temps {
		key := strings.ToLower(temp.SensorKey)
		if containsAny(key, "cpu", "coretemp", "k10temp") && temp.Temperature > 0 {
			return temp.Temperature
		}
	}

	// Apple Silicon reports no CPU-named sensor
	for _, temp := range temps {
		if temp.Temperature > 0 && temp.Temperature < 120 {
			return temp.Temperature
		}
	}
	return -1
}

// FormatBytes formats bytes to human-readable format
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
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
