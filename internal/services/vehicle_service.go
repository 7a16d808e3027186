package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"workshop-backend/internal/cache"
	"workshop-backend/internal/metrics"
	"workshop-backend/internal/models"
	"workshop-backend/internal/workflow"
)

// VehicleStore is the persistence surface the service needs for vehicle
// documents. Satisfied by repositories.VehicleRepository.
type VehicleStore interface {
	GetByNumber(ctx context.Context, number string) (*models.VehicleRecord, error)
	Save(ctx context.Context, v *models.VehicleRecord) error
	List(ctx context.Context) ([]*models.VehicleRecord, error)
	SoftDelete(ctx context.Context, number string) error
}

// EventStore is the append-only transition log. Satisfied by
// repositories.VehicleEventRepository.
type EventStore interface {
	Append(ctx context.Context, e *models.VehicleEvent) error
	ListByVehicle(ctx context.Context, number string) ([]*models.VehicleEvent, error)
}

// TransitionBroadcaster pushes accepted transitions to the live monitor.
// Satisfied by monitoring.MonitoringServer.
type TransitionBroadcaster interface {
	BroadcastTransition(vehicleNumber, stage, eventType, status string, at time.Time)
}

const dbTimeout = 10 * time.Second

type VehicleService struct {
	vehicles    VehicleStore
	events      EventStore
	engine      *workflow.Engine
	locks       *vehicleLocks
	broadcaster TransitionBroadcaster
	now         func() time.Time
}

func NewVehicleService(vehicles VehicleStore, events EventStore, now func() time.Time) *VehicleService {
	return &VehicleService{
		vehicles: vehicles,
		events:   events,
		engine:   workflow.NewEngine(),
		locks:    newVehicleLocks(),
		now:      now,
	}
}

// SetBroadcaster wires the live monitor. Optional; nil means no broadcasts.
func (s *VehicleService) SetBroadcaster(b TransitionBroadcaster) {
	s.broadcaster = b
}

// VehicleView is the API shape for a single vehicle: the stage document plus
// the derived status and active stage.
type VehicleView struct {
	*models.VehicleRecord
	Status      string `json:"status"`
	ActiveStage string `json:"activeStage,omitempty"`
}

// ApplyTransition runs one stage transition end to end: per-vehicle lock,
// load (auto-creating first-touch vehicles), engine validation and mutation,
// save, event append, cache invalidation and broadcast. Rejected transitions
// leave both the document and the event log untouched.
func (s *VehicleService) ApplyTransition(ctx context.Context, req models.TransitionRequest) (*VehicleView, error) {
	req.VehicleNumber = strings.ToUpper(strings.TrimSpace(req.VehicleNumber))
	if req.VehicleNumber == "" {
		return nil, errors.New("vehicle number is required")
	}

	release := s.locks.acquire(req.VehicleNumber)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	v, err := s.vehicles.GetByNumber(ctx, req.VehicleNumber)
	if err != nil {
		return nil, &workflow.StoreError{Op: "load vehicle", Err: err}
	}
	if v == nil {
		v = models.NewVehicleRecord(req.VehicleNumber)
	}

	event, err := s.engine.Apply(v, req, s.now())
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(req.Stage, req.EventType, "rejected").Inc()
		return nil, err
	}

	if err := s.vehicles.Save(ctx, v); err != nil {
		metrics.TransitionsTotal.WithLabelValues(req.Stage, req.EventType, "rejected").Inc()
		return nil, &workflow.StoreError{Op: "save vehicle", Err: err}
	}

	// The document is the source of truth; a failed log append is recorded
	// but does not fail the accepted transition.
	if err := s.events.Append(ctx, event); err != nil {
		log.Printf("[Vehicle] event append failed for %s %s/%s: %v",
			req.VehicleNumber, req.Stage, req.EventType, err)
	}

	metrics.TransitionsTotal.WithLabelValues(req.Stage, req.EventType, "accepted").Inc()
	cache.InvalidateVehicleCaches(ctx, req.VehicleNumber)

	status := workflow.Status(v)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTransition(req.VehicleNumber, req.Stage, req.EventType, status, event.Timestamp)
	}

	return s.view(v), nil
}

// Get returns the vehicle document with derived status. Returns (nil, nil)
// for unknown or soft-deleted vehicles.
func (s *VehicleService) Get(ctx context.Context, number string) (*VehicleView, error) {
	number = strings.ToUpper(strings.TrimSpace(number))

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	v, err := s.vehicles.GetByNumber(ctx, number)
	if err != nil {
		return nil, &workflow.StoreError{Op: "load vehicle", Err: err}
	}
	if v == nil || v.IsDeleted {
		return nil, nil
	}
	return s.view(v), nil
}

// List returns all non-deleted vehicles with derived status.
func (s *VehicleService) List(ctx context.Context) ([]*VehicleView, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, &workflow.StoreError{Op: "list vehicles", Err: err}
	}

	views := make([]*VehicleView, 0, len(records))
	for _, v := range records {
		views = append(views, s.view(v))
	}
	return views, nil
}

// Timeline returns the ordered journey view for one vehicle.
func (s *VehicleService) Timeline(ctx context.Context, number string) ([]workflow.TimelineEntry, error) {
	view, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, nil
	}
	return workflow.Timeline(view.VehicleRecord), nil
}

// History returns the raw transition log for one vehicle in append order.
func (s *VehicleService) History(ctx context.Context, number string) ([]*models.VehicleEvent, error) {
	number = strings.ToUpper(strings.TrimSpace(number))

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	events, err := s.events.ListByVehicle(ctx, number)
	if err != nil {
		return nil, &workflow.StoreError{Op: "load history", Err: err}
	}
	return events, nil
}

// SoftDelete hides a vehicle from listings. The document and its event log
// are kept.
func (s *VehicleService) SoftDelete(ctx context.Context, number string) error {
	number = strings.ToUpper(strings.TrimSpace(number))

	release := s.locks.acquire(number)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.vehicles.SoftDelete(ctx, number); err != nil {
		return err
	}
	cache.InvalidateVehicleCaches(ctx, number)
	return nil
}

func (s *VehicleService) view(v *models.VehicleRecord) *VehicleView {
	return &VehicleView{
		VehicleRecord: v,
		Status:        workflow.Status(v),
		ActiveStage:   workflow.ActiveStage(v),
	}
}
