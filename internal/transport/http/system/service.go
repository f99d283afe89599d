package system

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"clinic-server-go/internal/domain/model"
	httptransport "clinic-server-go/internal/transport/http"
)

// StatsFunc supplies throttler counters for the stats route.
type StatsFunc func() map[string]any

// Service exposes process health for probes and dashboards.
type Service struct {
	logger  model.Logger
	stats   StatsFunc
	started time.Time
}

// NewService creates the system transport service. stats may be nil.
func NewService(logger model.Logger, stats StatsFunc) *Service {
	return &Service{logger: logger, stats: stats, started: time.Now()}
}

// Register mounts the health and stats routes under the group.
func (s *Service) Register(router *gin.RouterGroup) {
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
}

func (s *Service) handleStats(c *gin.Context) {
	if s.stats == nil {
		httptransport.RespondSuccess(c, http.StatusOK, gin.H{}, "")
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, s.stats(), "")
}

type healthReport struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

func (s *Service) handleHealth(c *gin.Context) {
	report := healthReport{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		report.CPUPercent = percents[0]
	} else if err != nil {
		s.logger.Debug("cpu sample failed: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemoryPercent = vm.UsedPercent
	} else {
		s.logger.Debug("memory sample failed: %v", err)
	}

	httptransport.RespondSuccess(c, http.StatusOK, report, "")
}
