package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by *pgxpool.Pool and the redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db        Pinger
	redis     Pinger
	started   time.Time
	liveCount func() int
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Redis    *ComponentHealth `json:"redis,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type DetailedStatus struct {
	HealthStatus
	Uptime        string  `json:"uptime"`
	LiveClients   int     `json:"live_clients"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`
}

func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db, started: time.Now()}
}

// WithRedis adds an optional redis check; a failing redis degrades but does
// not fail readiness.
func (h *HealthChecker) WithRedis(r Pinger) *HealthChecker {
	h.redis = r
	return h
}

func (h *HealthChecker) WithLiveClients(count func() int) *HealthChecker {
	h.liveCount = count
	return h
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := check(h.db)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	hs := HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
	if h.redis != nil {
		rh := check(h.redis)
		hs.Redis = &rh
		if rh.Status != "healthy" && status == "healthy" {
			hs.Status = "degraded"
		}
	}
	return hs
}

// CheckDetailed adds host resource usage for the monitoring dashboard
func (h *HealthChecker) CheckDetailed() DetailedStatus {
	ds := DetailedStatus{
		HealthStatus: h.CheckBasic(),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
	}
	if h.liveCount != nil {
		ds.LiveClients = h.liveCount()
	}

	if cpuPercents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		ds.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		ds.MemoryPercent = memStats.UsedPercent
		ds.MemoryUsed = formatBytes(memStats.Used)
		ds.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		ds.DiskPercent = diskStats.UsedPercent
		ds.DiskUsed = formatBytes(diskStats.Used)
		ds.DiskTotal = formatBytes(diskStats.Total)
	}
	return ds
}

func check(p Pinger) ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
