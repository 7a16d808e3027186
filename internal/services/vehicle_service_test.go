package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVehicleStore is an in-memory VehicleStore. Records are copied on every
// read and write so a lost update between concurrent load-mutate-save cycles
// is observable, just as it would be against Postgres.
type fakeVehicleStore struct {
	mu       sync.Mutex
	vehicles map[string]*models.VehicleRecord
	saves    int
}

func newFakeVehicleStore() *fakeVehicleStore {
	return &fakeVehicleStore{vehicles: make(map[string]*models.VehicleRecord)}
}

func copyRecord(v *models.VehicleRecord) *models.VehicleRecord {
	data, _ := json.Marshal(v)
	var out models.VehicleRecord
	json.Unmarshal(data, &out)
	return &out
}

func (s *fakeVehicleStore) GetByNumber(ctx context.Context, number string) (*models.VehicleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[number]
	if !ok {
		return nil, nil
	}
	return copyRecord(v), nil
}

func (s *fakeVehicleStore) Save(ctx context.Context, v *models.VehicleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.VehicleNumber] = copyRecord(v)
	s.saves++
	return nil
}

func (s *fakeVehicleStore) List(ctx context.Context) ([]*models.VehicleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.VehicleRecord
	for _, v := range s.vehicles {
		if !v.IsDeleted {
			out = append(out, copyRecord(v))
		}
	}
	return out, nil
}

func (s *fakeVehicleStore) SoftDelete(ctx context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[number]
	if !ok {
		return fmt.Errorf("vehicle not found")
	}
	v.IsDeleted = true
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []*models.VehicleEvent
}

func (s *fakeEventStore) Append(ctx context.Context, e *models.VehicleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = len(s.events) + 1
	s.events = append(s.events, e)
	return nil
}

func (s *fakeEventStore) ListByVehicle(ctx context.Context, number string) ([]*models.VehicleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.VehicleEvent
	for _, e := range s.events {
		if e.VehicleNumber == number {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestService() (*VehicleService, *fakeVehicleStore, *fakeEventStore) {
	vehicles := newFakeVehicleStore()
	events := &fakeEventStore{}
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewVehicleService(vehicles, events, func() time.Time { return clock })
	return svc, vehicles, events
}

func TestApplyTransitionAutoCreatesVehicle(t *testing.T) {
	svc, vehicles, events := newTestService()

	view, err := svc.ApplyTransition(context.Background(), models.TransitionRequest{
		VehicleNumber: " mh12ab1234 ",
		Stage:         models.StageSecurityGate,
		EventType:     models.EventStart,
		Payload:       models.TransitionPayload{InKM: 100, BringBy: models.PartyDriver},
	})
	require.NoError(t, err)

	// Number is normalized before anything else.
	assert.Equal(t, "MH12AB1234", view.VehicleNumber)
	assert.Equal(t, workflow.StatusWaitingApproval, view.Status)
	assert.Equal(t, models.StageSecurityGate, view.ActiveStage)

	stored, _ := vehicles.GetByNumber(context.Background(), "MH12AB1234")
	require.NotNil(t, stored)
	require.NotNil(t, stored.SecurityGate)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventStart, events.events[0].EventType)
}

func TestRejectedTransitionPersistsNothing(t *testing.T) {
	svc, vehicles, events := newTestService()

	_, err := svc.ApplyTransition(context.Background(), models.TransitionRequest{
		VehicleNumber: "MH12AB1234",
		Stage:         models.StageBayAllocation,
		EventType:     models.EventStart,
	})
	require.Error(t, err)
	assert.True(t, workflow.IsValidation(err))

	assert.Zero(t, vehicles.saves, "rejected transition must not save")
	assert.Empty(t, events.events, "rejected transition must not log")
}

func TestApplyTransitionRequiresVehicleNumber(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ApplyTransition(context.Background(), models.TransitionRequest{
		Stage:     models.StagePickupDrop,
		EventType: models.EventStart,
	})
	require.Error(t, err)
}

func TestConcurrentTransitionsDoNotLoseUpdates(t *testing.T) {
	svc, vehicles, events := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyTransition(ctx, models.TransitionRequest{
		VehicleNumber: "MH12AB1234",
		Stage:         models.StageBayWork,
		EventType:     models.EventStart,
		Payload:       models.TransitionPayload{BayNumber: "B1"},
	})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.ApplyTransition(ctx, models.TransitionRequest{
				VehicleNumber: "MH12AB1234",
				Stage:         models.StageBayWork,
				EventType:     models.EventAdditionalWorkNeeded,
				Payload:       models.TransitionPayload{Description: fmt.Sprintf("finding %d", n)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, _ := vehicles.GetByNumber(ctx, "MH12AB1234")
	require.NotNil(t, stored)
	assert.Len(t, stored.BayWork.AdditionalWorkLogs, workers, "every concurrent log entry must survive")
	assert.Len(t, events.events, workers+1)
}

func TestGetHidesDeletedVehicles(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyTransition(ctx, models.TransitionRequest{
		VehicleNumber: "MH12AB1234",
		Stage:         models.StagePickupDrop,
		EventType:     models.EventStart,
	})
	require.NoError(t, err)

	view, err := svc.Get(ctx, "mh12ab1234")
	require.NoError(t, err)
	require.NotNil(t, view)

	require.NoError(t, svc.SoftDelete(ctx, "MH12AB1234"))

	view, err = svc.Get(ctx, "MH12AB1234")
	require.NoError(t, err)
	assert.Nil(t, view, "deleted vehicle must not be returned")
}

func TestHistoryKeepsAppendOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	steps := []struct {
		stage, eventType string
		payload          models.TransitionPayload
	}{
		{models.StageSecurityGate, models.EventStart, models.TransitionPayload{BringBy: models.PartyDriver}},
		{models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "noise"}},
		{models.StageSecurityGate, models.EventEnd, models.TransitionPayload{TakeOutBy: models.PartyDriver}},
	}
	for _, s := range steps {
		_, err := svc.ApplyTransition(ctx, models.TransitionRequest{
			VehicleNumber: "MH12AB1234",
			Stage:         s.stage,
			EventType:     s.eventType,
			Payload:       s.payload,
		})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "MH12AB1234")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, s := range steps {
		assert.Equal(t, s.stage, history[i].Stage)
		assert.Equal(t, s.eventType, history[i].EventType)
	}
}
