package health

import (
	"context"
	"time"

	"workshop-backend/internal/cache"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthChecker struct {
	db      *pgxpool.Pool
	started time.Time
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Redis    string         `json:"redis"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

// ReadinessStatus reports whether the service can take traffic. Redis is
// optional, so only the database gates readiness.
type ReadinessStatus struct {
	Ready    bool   `json:"ready"`
	Database string `json:"database"`
}

type DetailedStatus struct {
	HealthStatus
	Uptime       string `json:"uptime"`
	PoolAcquired int32  `json:"pool_acquired_conns"`
	PoolIdle     int32  `json:"pool_idle_conns"`
	PoolTotal    int32  `json:"pool_total_conns"`
}

func NewHealthChecker(db *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{db: db, started: time.Now()}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	redisStatus := "healthy"
	if !cache.IsHealthy() {
		redisStatus = "unavailable"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    redisStatus,
	}
}

func (h *HealthChecker) CheckReadiness() ReadinessStatus {
	dbHealth := h.checkDatabase()
	return ReadinessStatus{
		Ready:    dbHealth.Status == "healthy",
		Database: dbHealth.Status,
	}
}

// CheckDetailed adds pool and uptime figures to the basic check for the ops
// dashboard.
func (h *HealthChecker) CheckDetailed() DetailedStatus {
	basic := h.CheckBasic()
	stat := h.db.Stat()

	return DetailedStatus{
		HealthStatus: basic,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		PoolAcquired: stat.AcquiredConns(),
		PoolIdle:     stat.IdleConns(),
		PoolTotal:    stat.TotalConns(),
	}
}

func (h *HealthChecker) checkDatabase() DatabaseHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	status := "healthy"
	if err != nil {
		status = "unhealthy"
	}

	return DatabaseHealth{
		Status:       status,
		ResponseTime: responseTime,
	}
}
