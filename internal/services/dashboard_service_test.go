package services

import (
	"context"
	"testing"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboardStore struct {
	records    []*models.VehicleRecord
	stageAsked string
}

func (s *fakeDashboardStore) ListGateHistory(ctx context.Context, f repositories.GateHistoryFilter) ([]*models.VehicleRecord, error) {
	return s.records, nil
}

func (s *fakeDashboardStore) ListWithStageStarted(ctx context.Context, stage string) ([]*models.VehicleRecord, error) {
	s.stageAsked = stage
	return s.records, nil
}

func (s *fakeDashboardStore) CountGateEntries(ctx context.Context, from, to time.Time) (int, error) {
	return 0, nil
}

func (s *fakeDashboardStore) CountGateExits(ctx context.Context, from, to time.Time) (int, error) {
	return 0, nil
}

func (s *fakeDashboardStore) ListInside(ctx context.Context) ([]*models.VehicleRecord, error) {
	return nil, nil
}

func dashAt(minutes int) *time.Time {
	t := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return &t
}

func newDashboardTestService(records ...*models.VehicleRecord) (*DashboardService, *fakeDashboardStore) {
	store := &fakeDashboardStore{records: records}
	clock := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return NewDashboardService(store, func() time.Time { return clock }), store
}

func TestSecurityGateHistorySplitsMovements(t *testing.T) {
	v := models.NewVehicleRecord("MH12AB1234")
	v.SecurityGate = &models.SecurityGateSlot{
		StartTime:   dashAt(0),
		EndTime:     dashAt(30),
		PerformedBy: 3,
		EndedBy:     7,
		InKM:        100,
		OutKM:       112,
		BringBy:     models.PartyDriver,
		TakeOutBy:   models.PartyCustomer,
		IsCompleted: true,
	}

	svc, _ := newDashboardTestService(v)
	movements, err := svc.SecurityGateHistory(context.Background(), repositories.GateHistoryFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	in, out := movements[0], movements[1]
	assert.Equal(t, "IN", in.Direction)
	assert.Equal(t, 100, in.KM)
	assert.Equal(t, models.PartyDriver, in.BringBy)

	assert.Equal(t, "OUT", out.Direction)
	assert.Equal(t, 112, out.KM)
	assert.Equal(t, models.PartyCustomer, out.TakeOutBy)
	assert.Equal(t, 7, out.EndedBy)
	assert.Equal(t, *dashAt(30), out.Timestamp)
}

func TestSecurityGateHistorySkipsVehiclesWithoutGateData(t *testing.T) {
	svc, _ := newDashboardTestService(models.NewVehicleRecord("MH12AB1234"))

	movements, err := svc.SecurityGateHistory(context.Background(), repositories.GateHistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestStageProgressRejectsUnknownStage(t *testing.T) {
	svc, _ := newDashboardTestService()

	_, err := svc.StageProgress(context.Background(), "paintBooth")
	require.Error(t, err)
	var stageErr *workflow.InvalidStageError
	assert.ErrorAs(t, err, &stageErr)
}

func TestStageProgressSingletonStage(t *testing.T) {
	open := models.NewVehicleRecord("MH12AB1234")
	open.BayWork = &models.BayWorkSlot{StartTime: dashAt(30)}

	done := models.NewVehicleRecord("KA01CD5678")
	done.BayWork = &models.BayWorkSlot{StartTime: dashAt(0), EndTime: dashAt(25), IsCompleted: true}

	svc, store := newDashboardTestService(open, done)
	rows, err := svc.StageProgress(context.Background(), models.StageBayWork)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.StageBayWork, store.stageAsked)

	// Open stage is measured to now (clock is 10:00, start 09:30).
	assert.False(t, rows[0].IsCompleted)
	assert.Equal(t, "30m", rows[0].Duration)

	assert.True(t, rows[1].IsCompleted)
	assert.Equal(t, "25m", rows[1].Duration)
}

func TestStageProgressWashingUsesLatestSession(t *testing.T) {
	// Two washing rounds; only the last one drives the progress row.
	v := models.NewVehicleRecord("MH12AB1234")
	v.Washing = []models.WashingEntry{
		{StartTime: dashAt(5), EndTime: dashAt(15), IsCompleted: true},
		{StartTime: dashAt(40)},
	}

	svc, _ := newDashboardTestService(v)
	rows, err := svc.StageProgress(context.Background(), models.StageWashing)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, *dashAt(40), *rows[0].StartTime)
	assert.False(t, rows[0].IsCompleted)
	assert.Equal(t, "20m", rows[0].Duration)
	assert.Equal(t, workflow.StatusInWashing, rows[0].Status)
}

func TestStageProgressBayAllocationAlwaysOpen(t *testing.T) {
	v := models.NewVehicleRecord("MH12AB1234")
	v.BayAllocations = []models.BayAllocationEntry{
		{StartTime: dashAt(0), IsFirstAllocation: true},
		{StartTime: dashAt(45)},
	}

	svc, _ := newDashboardTestService(v)
	rows, err := svc.StageProgress(context.Background(), models.StageBayAllocation)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Allocations never end; the latest one is measured to now.
	assert.Equal(t, *dashAt(45), *rows[0].StartTime)
	assert.False(t, rows[0].IsCompleted)
	assert.Equal(t, "15m", rows[0].Duration)
}
