package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/finplanner/rebalancer/internal/database"
	"github.com/finplanner/rebalancer/internal/di"
	"github.com/finplanner/rebalancer/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves status, database statistics and manual job triggers
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	databases   []*database.DB
	jobs        *di.JobInstances
	// runJob executes a triggered job; it runs in the background by default
	runJob func(job scheduler.Job)
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	StartedAt     string   `json:"started_at"`
	CPUPercent    float64  `json:"cpu_percent"`
	RAMPercent    float64  `json:"ram_percent"`
	Goroutines    int      `json:"goroutines"`
	HeapAllocMB   float64  `json:"heap_alloc_mb"`
	Databases     []DBInfo `json:"databases"`
}

// DBInfo describes one SQLite database
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Healthy   bool    `json:"healthy"`
}

// DatabaseStatsResponse is the body of GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// NewSystemHandlers creates a new system handlers instance. jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, databases []*database.DB, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		databases:   databases,
		jobs:        jobs,
	}
	h.runJob = func(job scheduler.Job) {
		go func() {
			if err := job.Run(); err != nil {
				h.log.Error().Err(err).Str("job", job.Name()).Msg("Triggered job failed")
			}
		}()
	}
	if h.jobs == nil {
		h.jobs = &di.JobInstances{}
	}
	return h
}

// HandleSystemStatus returns process, host and database status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbs := h.collectDatabaseInfo(r)
	status := "healthy"
	for _, db := range dbs {
		if !db.Healthy {
			status = "degraded"
		}
	}

	response := SystemStatusResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		StartedAt:     h.startupTime.Format(time.RFC3339),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		Databases:     dbs,
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	dbs := h.collectDatabaseInfo(r)
	totalSizeMB := 0.0
	for _, db := range dbs {
		totalSizeMB += db.SizeMB + db.WALSizeMB
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Databases:   dbs,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleTriggerPriceSync triggers the price sync job immediately
// POST /api/jobs/price-sync
func (h *SystemHandlers) HandleTriggerPriceSync(w http.ResponseWriter, r *http.Request) {
	if h.jobs.PriceSync == nil {
		h.writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "Price sync job not registered (no symbols configured)"})
		return
	}
	h.trigger(w, h.jobs.PriceSync)
}

// HandleTriggerCheckDatabases triggers the integrity check job immediately
// POST /api/jobs/check-databases
func (h *SystemHandlers) HandleTriggerCheckDatabases(w http.ResponseWriter, r *http.Request) {
	if h.jobs.CheckDatabases == nil {
		h.writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "Check databases job not registered"})
		return
	}
	h.trigger(w, h.jobs.CheckDatabases)
}

// HandleTriggerCheckWALCheckpoints triggers the WAL checkpoint job immediately
// POST /api/jobs/check-wal-checkpoints
func (h *SystemHandlers) HandleTriggerCheckWALCheckpoints(w http.ResponseWriter, r *http.Request) {
	if h.jobs.CheckWALCheckpoints == nil {
		h.writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "Check WAL checkpoints job not registered"})
		return
	}
	h.trigger(w, h.jobs.CheckWALCheckpoints)
}

func (h *SystemHandlers) trigger(w http.ResponseWriter, job scheduler.Job) {
	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")
	h.runJob(job)
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": job.Name() + " triggered successfully",
	})
}

func (h *SystemHandlers) collectDatabaseInfo(r *http.Request) []DBInfo {
	infos := make([]DBInfo, 0, len(h.databases))
	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path()}

		if stats, err := db.GetStats(); err == nil {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
		}

		if err := db.Conn().PingContext(r.Context()); err == nil {
			info.Healthy = true
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database ping failed")
		}

		infos = append(infos, info)
	}
	return infos
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status call does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	// Get memory statistics (instant, no blocking)
	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
