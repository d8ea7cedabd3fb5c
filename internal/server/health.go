package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// processStats carries best-effort resource usage of this process. Failures
// to read them degrade to zero values; /health never fails because of them.
type processStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float32 `json:"memoryPercent"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	HealthStats
	Process processStats `json:"process"`
}

// HealthHandler serves the aggregate room and connection counts consumed by
// operators, plus process resource usage.
type HealthHandler struct {
	registry *Registry
	log      *slog.Logger
}

// NewHealthHandler builds the /health endpoint over the given registry.
func NewHealthHandler(registry *Registry, log *slog.Logger) *HealthHandler {
	return &HealthHandler{registry: registry, log: log}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		HealthStats: h.registry.Stats(),
		Process:     h.collectProcessStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Debug("error writing health response", "err", err)
	}
}

func (h *HealthHandler) collectProcessStats() processStats {
	var stats processStats

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		h.log.Debug("error inspecting own process", "err", err)
		return stats
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := p.MemoryPercent(); err == nil {
		stats.MemoryPercent = mem
	}
	return stats
}
