package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workshop-backend/internal/cache"
	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/timeutil"
	"workshop-backend/internal/workflow"
)

const securityStatsCacheKey = "dashboard:security_stats"

// DashboardVehicleStore is the read-side slice of the vehicle repository the
// dashboards need.
type DashboardVehicleStore interface {
	ListGateHistory(ctx context.Context, f repositories.GateHistoryFilter) ([]*models.VehicleRecord, error)
	ListWithStageStarted(ctx context.Context, stage string) ([]*models.VehicleRecord, error)
	CountGateEntries(ctx context.Context, from, to time.Time) (int, error)
	CountGateExits(ctx context.Context, from, to time.Time) (int, error)
	ListInside(ctx context.Context) ([]*models.VehicleRecord, error)
}

type DashboardService struct {
	vehicles DashboardVehicleStore
	now      func() time.Time
}

func NewDashboardService(vehicles DashboardVehicleStore, now func() time.Time) *DashboardService {
	return &DashboardService{vehicles: vehicles, now: now}
}

// GateMovement is one row of the security gate history: a vehicle entering
// or leaving the premises.
type GateMovement struct {
	VehicleNumber string     `json:"vehicleNumber"`
	Direction     string     `json:"direction"` // "IN" or "OUT"
	Timestamp     time.Time  `json:"timestamp"`
	KM            int        `json:"km,omitempty"`
	BringBy       string     `json:"bringBy,omitempty"`
	TakeOutBy     string     `json:"takeOutBy,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	EndedBy       int        `json:"endedBy,omitempty"`
	GateEntry     *time.Time `json:"gateEntry,omitempty"`
	GateExit      *time.Time `json:"gateExit,omitempty"`
}

// SecurityGateHistory returns one IN row per recorded gate entry and one OUT
// row per recorded gate exit, newest first within each vehicle.
func (s *DashboardService) SecurityGateHistory(ctx context.Context, f repositories.GateHistoryFilter) ([]GateMovement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := s.vehicles.ListGateHistory(ctx, f)
	if err != nil {
		return nil, &workflow.StoreError{Op: "gate history", Err: err}
	}

	movements := make([]GateMovement, 0, len(records)*2)
	for _, v := range records {
		gate := v.SecurityGate
		if gate == nil {
			continue
		}
		if gate.StartTime != nil {
			movements = append(movements, GateMovement{
				VehicleNumber: v.VehicleNumber,
				Direction:     "IN",
				Timestamp:     *gate.StartTime,
				KM:            gate.InKM,
				BringBy:       gate.BringBy,
				CustomerName:  gate.CustomerName,
				GateEntry:     gate.StartTime,
				GateExit:      gate.EndTime,
			})
		}
		if gate.EndTime != nil {
			movements = append(movements, GateMovement{
				VehicleNumber: v.VehicleNumber,
				Direction:     "OUT",
				Timestamp:     *gate.EndTime,
				KM:            gate.OutKM,
				TakeOutBy:     gate.TakeOutBy,
				CustomerName:  gate.CustomerNameOut,
				EndedBy:       gate.EndedBy,
				GateEntry:     gate.StartTime,
				GateExit:      gate.EndTime,
			})
		}
	}
	return movements, nil
}

// StageProgressRow is one vehicle in the per-stage progress view.
type StageProgressRow struct {
	VehicleNumber string     `json:"vehicleNumber"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	IsCompleted   bool       `json:"isCompleted"`
	Duration      string     `json:"duration"`
	Status        string     `json:"status"`
}

// StageProgress lists every vehicle that has started the given stage with
// its elapsed or total time in the stage. Open stages are measured to now.
func (s *DashboardService) StageProgress(ctx context.Context, stage string) ([]StageProgressRow, error) {
	if !models.KnownStage(stage) {
		return nil, &workflow.InvalidStageError{Stage: stage}
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := s.vehicles.ListWithStageStarted(ctx, stage)
	if err != nil {
		return nil, &workflow.StoreError{Op: "stage progress", Err: err}
	}

	rows := make([]StageProgressRow, 0, len(records))
	for _, v := range records {
		w := v.Window(stage)
		if !w.Started() {
			continue
		}
		end := s.now()
		completed := false
		if w.End != nil {
			end = *w.End
			completed = true
		}
		rows = append(rows, StageProgressRow{
			VehicleNumber: v.VehicleNumber,
			StartTime:     w.Start,
			EndTime:       w.End,
			IsCompleted:   completed,
			Duration:      formatDuration(end.Sub(*w.Start)),
			Status:        workflow.Status(v),
		})
	}
	return rows, nil
}

// SecurityStats is the gate dashboard summary.
type SecurityStats struct {
	EntriesToday    int `json:"entriesToday"`
	ExitsToday      int `json:"exitsToday"`
	EntriesMonth    int `json:"entriesMonth"`
	ExitsMonth      int `json:"exitsMonth"`
	CurrentlyInside int `json:"currentlyInside"`
}

// SecurityStatsSummary returns today's and this month's gate movement counts
// plus the vehicles currently inside. Cached for two minutes.
func (s *DashboardService) SecurityStatsSummary(ctx context.Context) (*SecurityStats, error) {
	if data, ok := cache.GetCached(ctx, securityStatsCacheKey); ok {
		var stats SecurityStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := s.now()
	dayStart, dayEnd := timeutil.StartOfDay(now), timeutil.EndOfDay(now)
	monthStart, monthEnd := timeutil.StartOfMonth(now), timeutil.EndOfMonth(now)

	var stats SecurityStats
	var err error
	if stats.EntriesToday, err = s.vehicles.CountGateEntries(ctx, dayStart, dayEnd); err != nil {
		return nil, &workflow.StoreError{Op: "security stats", Err: err}
	}
	if stats.ExitsToday, err = s.vehicles.CountGateExits(ctx, dayStart, dayEnd); err != nil {
		return nil, &workflow.StoreError{Op: "security stats", Err: err}
	}
	if stats.EntriesMonth, err = s.vehicles.CountGateEntries(ctx, monthStart, monthEnd); err != nil {
		return nil, &workflow.StoreError{Op: "security stats", Err: err}
	}
	if stats.ExitsMonth, err = s.vehicles.CountGateExits(ctx, monthStart, monthEnd); err != nil {
		return nil, &workflow.StoreError{Op: "security stats", Err: err}
	}

	inside, err := s.vehicles.ListInside(ctx)
	if err != nil {
		return nil, &workflow.StoreError{Op: "security stats", Err: err}
	}
	stats.CurrentlyInside = len(inside)

	if data, err := json.Marshal(stats); err == nil {
		cache.SetCached(ctx, securityStatsCacheKey, data, 2*time.Minute)
	}
	return &stats, nil
}

// formatDuration renders a duration as "3h 25m" the way the floor displays
// show stage times.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
